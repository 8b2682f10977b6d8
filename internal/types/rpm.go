package types

import "strings"

type Capability struct {
	Name    string         `yaml:"name"`
	Flags   CapabilityFlag `yaml:"flags,omitempty"`
	Epoch   string         `yaml:"epoch,omitempty"`
	Version string         `yaml:"version,omitempty"`
	Release string         `yaml:"release,omitempty"`
}

func (c Capability) Versioned() bool {
	return c.Flags != CapabilityFlagNone && c.Version != ""
}

type Package struct {
	Name      string
	Epoch     string
	Version   string
	Release   string
	Arch      string
	RepoID    string
	Provides  []Capability
	Requires  []Capability
	Conflicts []Capability
	Obsoletes []Capability
	Files     []string
}

// EVR renders epoch:version-release, omitting a zero epoch.
func (p Package) EVR() string {
	return formatEVR(p.Epoch, p.Version, p.Release)
}

func (p Package) NEVRA() string {
	return p.Name + "-" + p.EVR() + "." + p.Arch
}

type GroupPackage struct {
	Name string
	Type GroupPackageType
}

type Group struct {
	ID       string
	Name     string
	Packages []GroupPackage
}

func formatEVR(epoch string, version string, release string) string {
	var b strings.Builder
	if epoch != "" && epoch != "0" {
		b.WriteString(epoch)
		b.WriteString(":")
	}
	b.WriteString(version)
	if release != "" {
		b.WriteString("-")
		b.WriteString(release)
	}
	return b.String()
}
