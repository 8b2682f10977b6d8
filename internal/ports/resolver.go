package ports

import (
	"context"

	"pkglist/internal/types"
)

// ResolverPort is the dependency resolver capability the depsolve
// orchestration drives. One value is one resolution environment.
type ResolverPort interface {
	Config() types.ResolverConfig
	RegisterRepository(repo types.Repository) error
	Repositories() []types.Repository

	// LoadRepository fetches the metadata of one registered repository.
	LoadRepository(ctx context.Context, id string) error

	// LoadPool loads any repository not yet fetched and builds the
	// candidate pool and group index from all of them.
	LoadPool(ctx context.Context) error

	AddInstallGoal(request string) error
	Resolve(ctx context.Context) error
	Transaction() []types.TransactionEntry
	Skipped() []string
}
