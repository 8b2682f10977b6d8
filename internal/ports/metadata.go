package ports

import (
	"context"

	"pkglist/internal/types"
)

// MetadataPort fetches and parses the repodata of a single repository.
type MetadataPort interface {
	Fetch(ctx context.Context, repo types.Repository, cfg types.ResolverConfig) (types.RepoMetadata, error)
}
