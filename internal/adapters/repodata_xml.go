package adapters

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pkglist/internal/types"
)

type repomdXML struct {
	Revision string       `xml:"revision"`
	Data     []repomdData `xml:"data"`
}

type repomdData struct {
	Type     string         `xml:"type,attr"`
	Checksum repomdChecksum `xml:"checksum"`
	Location repomdLocation `xml:"location"`
}

type repomdChecksum struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type repomdLocation struct {
	Href string `xml:"href,attr"`
}

func (r repomdXML) find(dataType string) (repomdData, bool) {
	for _, data := range r.Data {
		if data.Type == dataType {
			return data, true
		}
	}
	return repomdData{}, false
}

type primaryPackage struct {
	Type    string         `xml:"type,attr"`
	Name    string         `xml:"name"`
	Arch    string         `xml:"arch"`
	Version primaryVersion `xml:"version"`
	Format  primaryFormat  `xml:"format"`
}

type primaryVersion struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type primaryFormat struct {
	Provides  []rpmEntry `xml:"provides>entry"`
	Requires  []rpmEntry `xml:"requires>entry"`
	Conflicts []rpmEntry `xml:"conflicts>entry"`
	Obsoletes []rpmEntry `xml:"obsoletes>entry"`
	Files     []string   `xml:"file"`
}

type rpmEntry struct {
	Name  string `xml:"name,attr"`
	Flags string `xml:"flags,attr"`
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type compsXML struct {
	Groups []compsGroup `xml:"group"`
}

type compsGroup struct {
	ID       string         `xml:"id"`
	Names    []compsName    `xml:"name"`
	Packages []compsPackage `xml:"packagelist>packagereq"`
}

type compsName struct {
	Lang  string `xml:"lang,attr"`
	Value string `xml:",chardata"`
}

type compsPackage struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type metalinkXML struct {
	Files []metalinkFile `xml:"files>file"`
}

type metalinkFile struct {
	Name string        `xml:"name,attr"`
	URLs []metalinkURL `xml:"resources>url"`
}

type metalinkURL struct {
	Protocol string `xml:"protocol,attr"`
	Value    string `xml:",chardata"`
}

func parseRepomd(reader io.Reader) (repomdXML, error) {
	var repomd repomdXML
	if err := xml.NewDecoder(reader).Decode(&repomd); err != nil {
		return repomdXML{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse repomd.xml").
			WithCause(err)
	}
	return repomd, nil
}

// parsePrimary streams primary.xml one package element at a time.
// Source packages are skipped.
func parsePrimary(reader io.Reader, repoID string) ([]types.Package, error) {
	decoder := xml.NewDecoder(reader)
	var packages []types.Package
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to parse primary metadata").
				WithCause(err)
		}
		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "package" {
			continue
		}
		var entry primaryPackage
		if err := decoder.DecodeElement(&entry, &start); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to parse primary package entry").
				WithCause(err)
		}
		if entry.Type != "" && entry.Type != "rpm" {
			continue
		}
		if entry.Arch == "src" || entry.Arch == "nosrc" {
			continue
		}
		packages = append(packages, entry.toPackage(repoID))
	}
	return packages, nil
}

func (p primaryPackage) toPackage(repoID string) types.Package {
	epoch := strings.TrimSpace(p.Version.Epoch)
	if epoch == "" {
		epoch = "0"
	}
	files := make([]string, 0, len(p.Format.Files))
	for _, file := range p.Format.Files {
		if file = strings.TrimSpace(file); file != "" {
			files = append(files, file)
		}
	}
	return types.Package{
		Name:      strings.TrimSpace(p.Name),
		Epoch:     epoch,
		Version:   p.Version.Ver,
		Release:   p.Version.Rel,
		Arch:      strings.TrimSpace(p.Arch),
		RepoID:    repoID,
		Provides:  toCapabilities(p.Format.Provides),
		Requires:  toCapabilities(p.Format.Requires),
		Conflicts: toCapabilities(p.Format.Conflicts),
		Obsoletes: toCapabilities(p.Format.Obsoletes),
		Files:     files,
	}
}

func toCapabilities(entries []rpmEntry) []types.Capability {
	if len(entries) == 0 {
		return nil
	}
	out := make([]types.Capability, 0, len(entries))
	for _, entry := range entries {
		out = append(out, types.Capability{
			Name:    entry.Name,
			Flags:   types.CapabilityFlag(strings.ToUpper(entry.Flags)),
			Epoch:   entry.Epoch,
			Version: entry.Ver,
			Release: entry.Rel,
		})
	}
	return out
}

func parseComps(reader io.Reader) ([]types.Group, error) {
	var comps compsXML
	if err := xml.NewDecoder(reader).Decode(&comps); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse comps metadata").
			WithCause(err)
	}
	groups := make([]types.Group, 0, len(comps.Groups))
	for _, group := range comps.Groups {
		out := types.Group{ID: strings.TrimSpace(group.ID), Name: group.defaultName()}
		for _, req := range group.Packages {
			kind := types.GroupPackageType(strings.TrimSpace(req.Type))
			if kind == "" {
				kind = types.GroupPackageDefault
			}
			out.Packages = append(out.Packages, types.GroupPackage{
				Name: strings.TrimSpace(req.Value),
				Type: kind,
			})
		}
		groups = append(groups, out)
	}
	return groups, nil
}

func (g compsGroup) defaultName() string {
	for _, name := range g.Names {
		if name.Lang == "" {
			return strings.TrimSpace(name.Value)
		}
	}
	if len(g.Names) > 0 {
		return strings.TrimSpace(g.Names[0].Value)
	}
	return strings.TrimSpace(g.ID)
}

// parseMetalink returns the repository base URLs listed for repomd.xml.
func parseMetalink(reader io.Reader) ([]string, error) {
	var metalink metalinkXML
	if err := xml.NewDecoder(reader).Decode(&metalink); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse metalink").
			WithCause(err)
	}
	var bases []string
	for _, file := range metalink.Files {
		if file.Name != "repomd.xml" {
			continue
		}
		for _, entry := range file.URLs {
			location := strings.TrimSpace(entry.Value)
			if !strings.HasSuffix(location, repomdPath) {
				continue
			}
			bases = append(bases, strings.TrimSuffix(location, repomdPath))
		}
	}
	return bases, nil
}

// parseMirrorList reads one URL per line, ignoring blanks and comments.
func parseMirrorList(content string) []string {
	var bases []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		bases = append(bases, line)
	}
	return bases
}
