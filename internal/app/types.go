package app

import "pkglist/internal/types"

type ListRequest struct {
	Template string
}

type ListResult struct {
	Packages []string
}

type DepsolveRequest struct {
	Template   string
	Release    string
	Sources    []string
	SkipBroken bool
	TempDir    string
	Keep       bool
	Proxy      string
	Arch       string
	Output     string
	Verbose    bool
}

type DepsolveResult struct {
	SandboxRoot string
	Entries     []types.TransactionEntry
	Skipped     []string
}
