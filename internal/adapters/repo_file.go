package adapters

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/ini.v1"

	"pkglist/internal/ports"
	"pkglist/internal/types"
)

// RepoFileAdapter reads dnf .repo definitions (INI files, one section per
// repository).
type RepoFileAdapter struct{}

func NewRepoFileAdapter() RepoFileAdapter {
	return RepoFileAdapter{}
}

// Stage replaces every .repo file in reposDir with copies of paths. Two
// sources sharing a base name are rejected rather than overwritten.
func (a RepoFileAdapter) Stage(paths []string, reposDir string) ([]string, error) {
	if strings.TrimSpace(reposDir) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repo definitions directory is required")
	}
	if err := os.MkdirAll(reposDir, 0755); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create repo definitions directory").
			WithCause(err)
	}
	targets := make(map[string]string, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		if previous, ok := targets[name]; ok {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg(fmt.Sprintf("repo files %s and %s share the name %s", previous, path, name))
		}
		targets[name] = path
	}
	if err := clearRepoFiles(reposDir); err != nil {
		return nil, err
	}
	staged := make([]string, 0, len(paths))
	for _, path := range paths {
		target := filepath.Join(reposDir, filepath.Base(path))
		if err := copyFile(path, target); err != nil {
			return nil, err
		}
		staged = append(staged, target)
	}
	return staged, nil
}

func (a RepoFileAdapter) Load(reposDir string) ([]types.Repository, error) {
	files, err := filepath.Glob(filepath.Join(reposDir, "*.repo"))
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to list repo files").
			WithCause(err)
	}
	sort.Strings(files)
	var repos []types.Repository
	for _, file := range files {
		parsed, err := parseRepoFile(file)
		if err != nil {
			return nil, err
		}
		repos = append(repos, parsed...)
	}
	return repos, nil
}

func parseRepoFile(path string) ([]types.Repository, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		SkipUnrecognizableLines:    true,
	}, path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to parse repo file %s", filepath.Base(path))).
			WithCause(err)
	}
	var repos []types.Repository
	for _, section := range cfg.Sections() {
		id := strings.TrimSpace(section.Name())
		if id == ini.DefaultSection || id == "main" {
			continue
		}
		repo := types.Repository{
			ID:                id,
			Name:              section.Key("name").MustString(id),
			BaseURLs:          splitList(section.Key("baseurl").String()),
			MirrorList:        strings.TrimSpace(section.Key("mirrorlist").String()),
			Metalink:          strings.TrimSpace(section.Key("metalink").String()),
			Enabled:           section.Key("enabled").MustBool(true),
			SkipIfUnavailable: section.Key("skip_if_unavailable").MustBool(false),
			Proxy:             repoProxy(section.Key("proxy").String()),
			Excludes:          append(splitList(section.Key("exclude").String()), splitList(section.Key("excludepkgs").String())...),
			Origin:            types.RepositoryOriginFile,
		}
		if len(repo.BaseURLs) == 0 && repo.MirrorList == "" && repo.Metalink == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("repository %s has no baseurl, mirrorlist or metalink", id))
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

// splitList splits dnf list options, which accept commas and whitespace
// (including continuation lines) as separators.
func splitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}
	return out
}

func repoProxy(value string) string {
	value = strings.TrimSpace(value)
	if value == "_none_" {
		return ""
	}
	return value
}

// clearRepoFiles drops definitions staged by an earlier run in a reused
// sandbox.
func clearRepoFiles(reposDir string) error {
	stale, err := filepath.Glob(filepath.Join(reposDir, "*.repo"))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to list repo files").
			WithCause(err)
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to remove stale repo file").
				WithCause(err)
		}
	}
	return nil
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("repo file %s not found", src)).
			WithCause(err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stage repo file").
			WithCause(err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stage repo file").
			WithCause(err)
	}
	if err := out.Close(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stage repo file").
			WithCause(err)
	}
	return nil
}

var _ ports.RepoFilePort = RepoFileAdapter{}
