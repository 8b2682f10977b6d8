package core

import (
	"context"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pkglist/internal/ports"
	"pkglist/internal/types"
)

type EnvironmentOptions struct {
	ReleaseVersion string
	BaseArch       string
	SkipBroken     bool
	Proxy          string
}

// ResolverFactory creates the resolver handle for a configuration.
type ResolverFactory func(cfg types.ResolverConfig) ports.ResolverPort

// EnvironmentBuilder prepares a resolution environment bound to a sandbox.
type EnvironmentBuilder struct {
	RepoFiles   ports.RepoFilePort
	Narrator    Narrator
	newResolver ResolverFactory
}

func NewEnvironmentBuilder(metadata ports.MetadataPort, repoFiles ports.RepoFilePort, narrator Narrator) EnvironmentBuilder {
	return EnvironmentBuilder{
		RepoFiles: repoFiles,
		Narrator:  narrator,
		newResolver: func(cfg types.ResolverConfig) ports.ResolverPort {
			return NewResolver(cfg, metadata)
		},
	}
}

func (b EnvironmentBuilder) WithResolverFactory(factory ResolverFactory) EnvironmentBuilder {
	b.newResolver = factory
	return b
}

// NewResolverConfig derives the resolver configuration from the sandbox
// and the run options. Documentation files are always excluded.
func NewResolverConfig(sandbox types.SandboxPaths, opts EnvironmentOptions) types.ResolverConfig {
	arch := strings.TrimSpace(opts.BaseArch)
	if arch == "" {
		arch = DefaultBaseArch()
	}
	return types.ResolverConfig{
		InstallRoot:    sandbox.InstallRoot,
		CacheDir:       sandbox.Cache,
		LogDir:         sandbox.Logs,
		ReposDir:       sandbox.Repos,
		ReleaseVersion: strings.TrimSpace(opts.ReleaseVersion),
		BaseArch:       arch,
		SkipBroken:     opts.SkipBroken,
		Proxy:          strings.TrimSpace(opts.Proxy),
		TSFlags:        []string{"nodocs"},
	}
}

// Build creates the resolver handle and registers the repositories
// defined by .repo files staged in the sandbox.
func (b EnvironmentBuilder) Build(ctx context.Context, sandbox types.SandboxPaths, opts EnvironmentOptions) (ports.ResolverPort, error) {
	assert.NotEmpty(ctx, sandbox.Root, "sandbox root must be set")
	assert.NotEmpty(ctx, sandbox.Cache, "sandbox cache dir must be set")
	if strings.TrimSpace(opts.ReleaseVersion) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("release version is required")
	}
	cfg := NewResolverConfig(sandbox, opts)
	env := b.newResolver(cfg)
	log.Ctx(ctx).Debug().
		Str("installroot", cfg.InstallRoot).
		Str("releasever", cfg.ReleaseVersion).
		Str("basearch", cfg.BaseArch).
		Bool("skip_broken", cfg.SkipBroken).
		Strs("tsflags", cfg.TSFlags).
		Msg("resolver configured")

	repos, err := b.RepoFiles.Load(sandbox.Repos)
	if err != nil {
		return nil, err
	}
	for _, repo := range repos {
		if !repo.Enabled {
			log.Ctx(ctx).Debug().Str("repo", repo.ID).Msg("disabled repository ignored")
			continue
		}
		if IsSourceRepository(repo.Location()) {
			b.Narrator.Printf("Skipping source repo: %s", repo.ID)
			continue
		}
		b.Narrator.Printf("Adding %s from repo file", repo.ID)
		if err := env.RegisterRepository(repo); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// Load builds the candidate pool from the registered repositories only;
// no installed-package database is ever consulted.
func (b EnvironmentBuilder) Load(ctx context.Context, env ports.ResolverPort) error {
	b.Narrator.Printf("Building package pool from %d repositories", len(env.Repositories()))
	if err := env.LoadPool(ctx); err != nil {
		return err
	}
	return nil
}
