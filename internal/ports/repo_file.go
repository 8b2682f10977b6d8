package ports

import "pkglist/internal/types"

// RepoFilePort stages and reads dnf-style .repo definition files.
type RepoFilePort interface {
	// Stage makes paths the only definitions in reposDir.
	Stage(paths []string, reposDir string) ([]string, error)
	Load(reposDir string) ([]types.Repository, error)
}
