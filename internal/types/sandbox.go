package types

// SandboxPaths is the directory tree one run resolves in. Root owns the
// other four directories.
type SandboxPaths struct {
	Root        string
	Cache       string
	Logs        string
	Repos       string
	InstallRoot string
}

func (p SandboxPaths) Dirs() []string {
	return []string{p.Cache, p.Logs, p.Repos, p.InstallRoot}
}
