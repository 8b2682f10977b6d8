package adapters

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pkglist/internal/ports"
	"pkglist/internal/types"
)

// minSandboxRootLen guards Release against deleting short paths such as
// "/", "/tmp" or "/home/me"; those are always kept.
const minSandboxRootLen = 10

const sandboxPattern = "pkglist."

type SandboxDirAdapter struct {
	// BaseDir is where fresh sandboxes are created; empty means os.TempDir.
	BaseDir string
}

func NewSandboxDirAdapter() SandboxDirAdapter {
	return SandboxDirAdapter{}
}

func (a SandboxDirAdapter) Acquire(ctx context.Context, explicitPath string) (types.SandboxPaths, error) {
	root := strings.TrimSpace(explicitPath)
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return types.SandboxPaths{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid sandbox path").
				WithCause(err)
		}
		root = abs
		if err := os.MkdirAll(root, 0755); err != nil {
			return types.SandboxPaths{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create sandbox directory").
				WithCause(err)
		}
	} else {
		created, err := os.MkdirTemp(a.BaseDir, sandboxPattern)
		if err != nil {
			return types.SandboxPaths{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create sandbox directory").
				WithCause(err)
		}
		root = created
	}
	paths := sandboxLayout(root)
	for _, dir := range paths.Dirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.SandboxPaths{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create sandbox subdirectory").
				WithCause(err)
		}
	}
	log.Ctx(ctx).Debug().Str("root", root).Bool("reused", explicitPath != "").Msg("sandbox acquired")
	return paths, nil
}

func (a SandboxDirAdapter) Release(ctx context.Context, paths types.SandboxPaths, keep bool) error {
	root := filepath.Clean(strings.TrimSpace(paths.Root))
	if keep {
		log.Ctx(ctx).Debug().Str("root", root).Msg("sandbox kept")
		return nil
	}
	if len(root) < minSandboxRootLen || root == string(filepath.Separator) {
		log.Ctx(ctx).Warn().Str("root", root).Msg("refusing to delete short sandbox path, keeping it")
		return nil
	}
	if err := os.RemoveAll(root); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to remove sandbox directory").
			WithCause(err)
	}
	log.Ctx(ctx).Debug().Str("root", root).Msg("sandbox removed")
	return nil
}

func sandboxLayout(root string) types.SandboxPaths {
	return types.SandboxPaths{
		Root:        root,
		Cache:       filepath.Join(root, "cache"),
		Logs:        filepath.Join(root, "logs"),
		Repos:       filepath.Join(root, "repos.d"),
		InstallRoot: filepath.Join(root, "installroot"),
	}
}

var _ ports.SandboxPort = SandboxDirAdapter{}
