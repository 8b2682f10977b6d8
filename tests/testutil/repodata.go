package testutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

// RepoPackage describes one binary package of a generated repository.
// Capabilities are written as "name" or "name OP version", with OP one of
// = < <= > >=.
type RepoPackage struct {
	Name      string
	Epoch     string
	Version   string
	Release   string
	Arch      string
	Provides  []string
	Requires  []string
	Conflicts []string
	Obsoletes []string
	Files     []string
}

// RepoGroup is a comps group; every member is mandatory.
type RepoGroup struct {
	ID       string
	Name     string
	Packages []string
}

type RepoOptions struct {
	// Compression is "gz" (default), "zst" or "none".
	Compression string
	Groups      []RepoGroup
	Revision    string
}

// WriteRepo generates repodata for packages under dir and returns dir.
func WriteRepo(t *testing.T, dir string, packages []RepoPackage, opts RepoOptions) string {
	t.Helper()
	repodata := filepath.Join(dir, "repodata")
	require.NoError(t, os.MkdirAll(repodata, 0755))

	revision := opts.Revision
	if revision == "" {
		revision = "1700000000"
	}
	var data strings.Builder
	href, sum := writeCompressed(t, repodata, "primary.xml", primaryXML(packages), opts.Compression)
	data.WriteString(repomdEntry("primary", href, sum))
	if len(opts.Groups) > 0 {
		href, sum := writeCompressed(t, repodata, "comps.xml", compsXML(opts.Groups), "none")
		data.WriteString(repomdEntry("group", href, sum))
	}
	repomd := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<repomd xmlns="http://linux.duke.edu/metadata/repo" xmlns:rpm="http://linux.duke.edu/metadata/rpm">
  <revision>%s</revision>
%s</repomd>
`, revision, data.String())
	require.NoError(t, os.WriteFile(filepath.Join(repodata, "repomd.xml"), []byte(repomd), 0644))
	return dir
}

func repomdEntry(kind string, href string, sum string) string {
	return fmt.Sprintf(`  <data type="%s">
    <checksum type="sha256">%s</checksum>
    <location href="%s"/>
  </data>
`, kind, sum, href)
}

func writeCompressed(t *testing.T, repodata string, name string, content string, compression string) (string, string) {
	t.Helper()
	var payload bytes.Buffer
	switch compression {
	case "none":
	case "zst":
		name += ".zst"
		encoder, err := zstd.NewWriter(&payload)
		require.NoError(t, err)
		_, err = encoder.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, encoder.Close())
	default:
		name += ".gz"
		writer := gzip.NewWriter(&payload)
		_, err := writer.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, writer.Close())
	}
	if payload.Len() == 0 {
		payload.WriteString(content)
	}
	digest := sha256.Sum256(payload.Bytes())
	sum := hex.EncodeToString(digest[:])
	// Prefix with the checksum the way createrepo_c names its files.
	file := sum + "-" + name
	require.NoError(t, os.WriteFile(filepath.Join(repodata, file), payload.Bytes(), 0644))
	return "repodata/" + file, sum
}

func primaryXML(packages []RepoPackage) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<metadata xmlns="http://linux.duke.edu/metadata/common" xmlns:rpm="http://linux.duke.edu/metadata/rpm" packages="%d">`+"\n", len(packages))
	for _, pkg := range packages {
		epoch := pkg.Epoch
		if epoch == "" {
			epoch = "0"
		}
		b.WriteString(`<package type="rpm">`)
		fmt.Fprintf(&b, "<name>%s</name><arch>%s</arch>", pkg.Name, pkg.Arch)
		fmt.Fprintf(&b, `<version epoch="%s" ver="%s" rel="%s"/>`, epoch, pkg.Version, pkg.Release)
		fmt.Fprintf(&b, `<location href="Packages/%s-%s-%s.%s.rpm"/>`, pkg.Name, pkg.Version, pkg.Release, pkg.Arch)
		b.WriteString("<format>")
		provides := append([]string{fmt.Sprintf("%s = %s:%s-%s", pkg.Name, epoch, pkg.Version, pkg.Release)}, pkg.Provides...)
		writeEntries(&b, "provides", provides)
		writeEntries(&b, "requires", pkg.Requires)
		writeEntries(&b, "conflicts", pkg.Conflicts)
		writeEntries(&b, "obsoletes", pkg.Obsoletes)
		for _, file := range pkg.Files {
			fmt.Fprintf(&b, "<file>%s</file>", html.EscapeString(file))
		}
		b.WriteString("</format></package>\n")
	}
	b.WriteString("</metadata>\n")
	return b.String()
}

var capabilityFlags = map[string]string{
	"=":  "EQ",
	"<":  "LT",
	"<=": "LE",
	">":  "GT",
	">=": "GE",
}

func writeEntries(b *strings.Builder, kind string, capabilities []string) {
	if len(capabilities) == 0 {
		return
	}
	fmt.Fprintf(b, "<rpm:%s>", kind)
	for _, capability := range capabilities {
		fields := strings.Fields(capability)
		name := html.EscapeString(fields[0])
		if len(fields) != 3 {
			fmt.Fprintf(b, `<rpm:entry name="%s"/>`, name)
			continue
		}
		epoch, version, release := splitEVR(fields[2])
		fmt.Fprintf(b, `<rpm:entry name="%s" flags="%s" epoch="%s" ver="%s"`, name, capabilityFlags[fields[1]], epoch, version)
		if release != "" {
			fmt.Fprintf(b, ` rel="%s"`, release)
		}
		b.WriteString("/>")
	}
	fmt.Fprintf(b, "</rpm:%s>", kind)
}

func splitEVR(evr string) (string, string, string) {
	epoch := "0"
	if idx := strings.Index(evr, ":"); idx >= 0 {
		epoch = evr[:idx]
		evr = evr[idx+1:]
	}
	release := ""
	if idx := strings.LastIndex(evr, "-"); idx >= 0 {
		release = evr[idx+1:]
		evr = evr[:idx]
	}
	return epoch, evr, release
}

func compsXML(groups []RepoGroup) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<comps>\n")
	for _, group := range groups {
		fmt.Fprintf(&b, "<group><id>%s</id><name>%s</name><packagelist>", group.ID, group.Name)
		for _, pkg := range group.Packages {
			fmt.Fprintf(&b, `<packagereq type="mandatory">%s</packagereq>`, pkg)
		}
		b.WriteString("</packagelist></group>\n")
	}
	b.WriteString("</comps>\n")
	return b.String()
}
