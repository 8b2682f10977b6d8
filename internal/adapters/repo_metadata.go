package adapters

import (
	"bytes"
	"compress/bzip2"
	"context"
	"crypto/sha1" //nolint:gosec // legacy repomd checksums
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"github.com/ulikunitz/xz"

	"pkglist/internal/ports"
	"pkglist/internal/shared"
	"pkglist/internal/types"
)

const repomdPath = "repodata/repomd.xml"

// RepoMetadataAdapter downloads repodata for a repository and keeps a copy
// under the sandbox cache, keyed by repository id. Cached files whose
// checksum still matches repomd.xml are reused.
type RepoMetadataAdapter struct {
	Timeout time.Duration
}

func NewRepoMetadataAdapter() RepoMetadataAdapter {
	return RepoMetadataAdapter{Timeout: defaultHTTPTimeout}
}

var _ ports.MetadataPort = RepoMetadataAdapter{}

func (a RepoMetadataAdapter) Fetch(ctx context.Context, repo types.Repository, cfg types.ResolverConfig) (types.RepoMetadata, error) {
	proxy := repo.Proxy
	if proxy == "" {
		proxy = cfg.Proxy
	}
	transport, err := newRepoTransport(proxy, a.Timeout)
	if err != nil {
		return types.RepoMetadata{}, err
	}
	bases, err := resolveBaseURLs(ctx, transport, repo)
	if err != nil {
		return types.RepoMetadata{}, err
	}
	if len(bases) == 0 {
		return types.RepoMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no usable location for repository %s", repo.ID))
	}
	cacheDir := filepath.Join(cfg.CacheDir, repo.ID)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return types.RepoMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create metadata cache").
			WithCause(err)
	}

	var lastErr error
	for _, base := range bases {
		metadata, err := fetchFromBase(ctx, transport, repo.ID, base, cacheDir)
		if err == nil {
			return metadata, nil
		}
		log.Ctx(ctx).Debug().Err(err).Str("repo", repo.ID).Str("base", base).Msg("repository location failed")
		lastErr = err
	}
	return types.RepoMetadata{}, lastErr
}

// resolveBaseURLs prefers explicit baseurls, then the mirrorlist, then the
// metalink.
func resolveBaseURLs(ctx context.Context, transport *repoTransport, repo types.Repository) ([]string, error) {
	if len(repo.BaseURLs) > 0 {
		return repo.BaseURLs, nil
	}
	if repo.MirrorList != "" {
		content, err := readRemote(ctx, transport, repo.MirrorList)
		if err != nil {
			return nil, err
		}
		if bases := parseMirrorList(string(content)); len(bases) > 0 {
			return bases, nil
		}
		// Fedora-style mirrorlist entries may point at a metalink document.
		if bytes.Contains(content, []byte("<metalink")) {
			return parseMetalink(bytes.NewReader(content))
		}
		return nil, nil
	}
	if repo.Metalink != "" {
		content, err := readRemote(ctx, transport, repo.Metalink)
		if err != nil {
			return nil, err
		}
		return parseMetalink(bytes.NewReader(content))
	}
	return nil, nil
}

func fetchFromBase(ctx context.Context, transport *repoTransport, repoID string, base string, cacheDir string) (types.RepoMetadata, error) {
	raw, err := readRemote(ctx, transport, shared.JoinURL(base, repomdPath))
	if err != nil {
		return types.RepoMetadata{}, err
	}
	repomd, err := parseRepomd(bytes.NewReader(raw))
	if err != nil {
		return types.RepoMetadata{}, err
	}
	if err := os.WriteFile(filepath.Join(cacheDir, "repomd.xml"), raw, 0o644); err != nil {
		return types.RepoMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to cache repomd.xml").
			WithCause(err)
	}

	primary, ok := repomd.find("primary")
	if !ok {
		return types.RepoMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("repomd.xml for %s has no primary data", repoID))
	}
	primaryPath, err := cachedData(ctx, transport, base, cacheDir, primary)
	if err != nil {
		return types.RepoMetadata{}, err
	}
	var packages []types.Package
	err = readCompressed(primaryPath, func(r io.Reader) error {
		var parseErr error
		packages, parseErr = parsePrimary(r, repoID)
		return parseErr
	})
	if err != nil {
		return types.RepoMetadata{}, err
	}

	var groups []types.Group
	if comps, ok := findComps(repomd); ok {
		compsPath, err := cachedData(ctx, transport, base, cacheDir, comps)
		if err != nil {
			return types.RepoMetadata{}, err
		}
		err = readCompressed(compsPath, func(r io.Reader) error {
			var parseErr error
			groups, parseErr = parseComps(r)
			return parseErr
		})
		if err != nil {
			return types.RepoMetadata{}, err
		}
	}

	log.Ctx(ctx).Debug().
		Str("repo", repoID).
		Str("revision", repomd.Revision).
		Int("packages", len(packages)).
		Int("groups", len(groups)).
		Msg("loaded repository metadata")
	return types.RepoMetadata{
		RepoID:   repoID,
		Revision: repomd.Revision,
		Packages: packages,
		Groups:   groups,
	}, nil
}

func findComps(repomd repomdXML) (repomdData, bool) {
	if data, ok := repomd.find("group_gz"); ok {
		return data, true
	}
	return repomd.find("group")
}

// cachedData returns a local copy of a repomd data file, downloading it
// unless the cached copy matches the advertised checksum.
func cachedData(ctx context.Context, transport *repoTransport, base string, cacheDir string, data repomdData) (string, error) {
	href := strings.TrimSpace(data.Location.Href)
	if href == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("repomd %s entry has no location", data.Type))
	}
	local := filepath.Join(cacheDir, filepath.Base(href))
	want := strings.ToLower(strings.TrimSpace(data.Checksum.Value))
	if _, err := os.Stat(local); err == nil && want != "" {
		if got, err := fileChecksum(local, data.Checksum.Type); err == nil && got == want {
			log.Ctx(ctx).Debug().Str("file", local).Msg("reusing cached metadata")
			return local, nil
		}
	}

	raw, err := readRemote(ctx, transport, shared.JoinURL(base, href))
	if err != nil {
		return "", err
	}
	if want != "" {
		sum, err := newChecksum(data.Checksum.Type)
		if err == nil {
			sum.Write(raw)
			if got := hex.EncodeToString(sum.Sum(nil)); got != want {
				return "", errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg(fmt.Sprintf("checksum mismatch for %s", href))
			}
		}
	}
	if err := os.WriteFile(local, raw, 0o644); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to cache repository metadata").
			WithCause(err)
	}
	return local, nil
}

func readRemote(ctx context.Context, transport *repoTransport, location string) ([]byte, error) {
	body, err := transport.open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read %s", location)).
			WithCause(err)
	}
	return raw, nil
}

func newChecksum(kind string) (hash.Hash, error) {
	switch strings.ToLower(kind) {
	case "sha", "sha1":
		return sha1.New(), nil //nolint:gosec // legacy repomd checksums
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported checksum type %s", kind))
	}
}

func fileChecksum(path string, kind string) (string, error) {
	sum, err := newChecksum(kind)
	if err != nil {
		return "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	if _, err := io.Copy(sum, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// readCompressed opens a cached metadata file and hands parse a reader
// that undoes the compression implied by the file extension.
func readCompressed(path string, parse func(io.Reader) error) error {
	file, err := os.Open(path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open cached metadata").
			WithCause(err)
	}
	defer file.Close()
	reader, err := decompress(path, file)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to decompress %s", filepath.Base(path))).
			WithCause(err)
	}
	defer reader.Close()
	return parse(reader)
}

func decompress(path string, r io.Reader) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return gzip.NewReader(r)
	case strings.HasSuffix(path, ".zst"):
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return decoder.IOReadCloser(), nil
	case strings.HasSuffix(path, ".xz"):
		reader, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(reader), nil
	case strings.HasSuffix(path, ".bz2"):
		return io.NopCloser(bzip2.NewReader(r)), nil
	default:
		return io.NopCloser(r), nil
	}
}
