package ports

import (
	"context"

	"pkglist/internal/types"
)

// SandboxPort allocates and tears down the per-run directory tree.
type SandboxPort interface {
	// Acquire reuses explicitPath when it is non-empty, creating any
	// missing subdirectories, and allocates a fresh temporary tree
	// otherwise. Calling it twice with the same path is safe.
	Acquire(ctx context.Context, explicitPath string) (types.SandboxPaths, error)

	// Release deletes the sandbox root unless keep is set.
	Release(ctx context.Context, paths types.SandboxPaths, keep bool) error
}
