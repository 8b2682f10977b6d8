package types

// ResolverConfig replaces process-wide resolver settings. It is built once
// per run and owned by the resolver handle.
type ResolverConfig struct {
	// InstallRoot records the sandbox root the transaction targets; nothing
	// is installed into it.
	InstallRoot string

	// LogDir records where the run log for this environment lives.
	LogDir string

	CacheDir       string
	ReposDir       string
	ReleaseVersion string
	BaseArch       string
	Proxy          string

	// SkipBroken drops unresolvable requests; otherwise any failure aborts.
	SkipBroken bool

	// TSFlags records the transaction flags the run models, always nodocs.
	TSFlags []string
}
