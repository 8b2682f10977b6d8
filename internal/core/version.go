package core

import (
	"strings"

	rpmversion "github.com/knqyf263/go-rpm-version"

	"pkglist/internal/types"
)

// evrCache memoizes parsed rpm versions; the solver compares the same
// handful of EVR strings many thousands of times.
type evrCache struct {
	parsed map[string]rpmversion.Version
}

func newEVRCache() *evrCache {
	return &evrCache{parsed: map[string]rpmversion.Version{}}
}

func (c *evrCache) version(evr string) rpmversion.Version {
	if parsed, ok := c.parsed[evr]; ok {
		return parsed
	}
	parsed := rpmversion.NewVersion(evr)
	c.parsed[evr] = parsed
	return parsed
}

// compare returns -1, 0 or 1 comparing two epoch:version-release strings.
func (c *evrCache) compare(a string, b string) int {
	return c.version(a).Compare(c.version(b))
}

func (c *evrCache) comparePackages(a types.Package, b types.Package) int {
	return c.compare(evrString(a.Epoch, a.Version, a.Release, true), evrString(b.Epoch, b.Version, b.Release, true))
}

// satisfies reports whether the provided capability prov fulfils the
// requirement req, using rpm's range overlap rules. An unversioned side
// matches anything with the same name.
func (c *evrCache) satisfies(req types.Capability, prov types.Capability) bool {
	if req.Name != prov.Name {
		return false
	}
	if !req.Versioned() || !prov.Versioned() {
		return true
	}
	withRelease := req.Release != "" && prov.Release != ""
	sense := c.compare(
		evrString(prov.Epoch, prov.Version, prov.Release, withRelease),
		evrString(req.Epoch, req.Version, req.Release, withRelease),
	)
	provLess, provEq, provGreater := flagSenses(prov.Flags)
	reqLess, reqEq, reqGreater := flagSenses(req.Flags)
	switch {
	case sense < 0:
		return provGreater || reqLess
	case sense > 0:
		return provLess || reqGreater
	default:
		return (provEq && reqEq) || (provLess && reqLess) || (provGreater && reqGreater)
	}
}

// packageSatisfies checks req against the package's own name and EVR,
// which every rpm implicitly provides.
func (c *evrCache) packageSatisfies(req types.Capability, pkg types.Package) bool {
	return c.satisfies(req, selfProvide(pkg))
}

func selfProvide(pkg types.Package) types.Capability {
	return types.Capability{
		Name:    pkg.Name,
		Flags:   types.CapabilityFlagEQ,
		Epoch:   pkg.Epoch,
		Version: pkg.Version,
		Release: pkg.Release,
	}
}

func flagSenses(flag types.CapabilityFlag) (less bool, equal bool, greater bool) {
	switch flag {
	case types.CapabilityFlagEQ:
		return false, true, false
	case types.CapabilityFlagLT:
		return true, false, false
	case types.CapabilityFlagLE:
		return true, true, false
	case types.CapabilityFlagGT:
		return false, false, true
	case types.CapabilityFlagGE:
		return false, true, true
	default:
		return false, false, false
	}
}

func evrString(epoch string, version string, release string, withRelease bool) string {
	var b strings.Builder
	if epoch == "" {
		epoch = "0"
	}
	b.WriteString(epoch)
	b.WriteString(":")
	b.WriteString(version)
	if withRelease && release != "" {
		b.WriteString("-")
		b.WriteString(release)
	}
	return b.String()
}
