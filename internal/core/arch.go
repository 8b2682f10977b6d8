package core

import "runtime"

// compatibleArches lists, per base architecture, the package arches an
// install on that base can use besides noarch.
var compatibleArches = map[string][]string{
	"x86_64":  {"x86_64"},
	"aarch64": {"aarch64"},
	"ppc64le": {"ppc64le"},
	"s390x":   {"s390x"},
	"i686":    {"i686", "i586", "i486", "i386"},
	"armv7hl": {"armv7hl", "armv7l"},
	"riscv64": {"riscv64"},
}

var goArchToRPM = map[string]string{
	"amd64":   "x86_64",
	"arm64":   "aarch64",
	"386":     "i686",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
	"arm":     "armv7hl",
	"riscv64": "riscv64",
}

// DefaultBaseArch maps the host architecture to its rpm base arch.
func DefaultBaseArch() string {
	if arch, ok := goArchToRPM[runtime.GOARCH]; ok {
		return arch
	}
	return runtime.GOARCH
}

func archCompatible(baseArch string, arch string) bool {
	switch arch {
	case "noarch":
		return true
	case "src", "nosrc":
		return false
	}
	compat, ok := compatibleArches[baseArch]
	if !ok {
		return arch == baseArch
	}
	for _, candidate := range compat {
		if candidate == arch {
			return true
		}
	}
	return false
}
