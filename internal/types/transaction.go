package types

type TransactionEntry struct {
	Name    string `yaml:"name"`
	Epoch   string `yaml:"epoch"`
	Version string `yaml:"version"`
	Release string `yaml:"release"`
	Arch    string `yaml:"arch"`
	RepoID  string `yaml:"repo"`
}

// String renders the canonical name-[epoch:]version-release.arch form.
func (e TransactionEntry) String() string {
	return e.Name + "-" + formatEVR(e.Epoch, e.Version, e.Release) + "." + e.Arch
}

func EntryFromPackage(pkg Package) TransactionEntry {
	return TransactionEntry{
		Name:    pkg.Name,
		Epoch:   pkg.Epoch,
		Version: pkg.Version,
		Release: pkg.Release,
		Arch:    pkg.Arch,
		RepoID:  pkg.RepoID,
	}
}

type ResolutionOutcome struct {
	Entries []TransactionEntry
	Skipped []string
}

type TransactionFile struct {
	Packages []TransactionEntry `yaml:"packages"`
}
