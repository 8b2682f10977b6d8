package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pkglist/internal/ports"
	"pkglist/internal/types"
)

const bareRepoPrefix = "lorax-repo-"

// Registrar turns classified sources into registered repositories.
type Registrar struct {
	RepoFiles ports.RepoFilePort
	Narrator  Narrator
	exists    func(string) bool
}

func NewRegistrar(repoFiles ports.RepoFilePort, narrator Narrator) Registrar {
	return Registrar{RepoFiles: repoFiles, Narrator: narrator}
}

func (r Registrar) Classify(ctx context.Context, raw []string) []types.RepositorySource {
	sources := Classify(raw, r.exists)
	for _, source := range sources {
		if source.Kind != types.SourceRejected {
			continue
		}
		log.Ctx(ctx).Debug().Str("source", source.Original).Msg("unsupported repository source dropped")
		r.Narrator.Printf("Skipping unsupported repository source %s", source.Original)
	}
	return sources
}

// Stage replaces the sandbox repo definitions with copies of the .repo
// sources, so a reused sandbox never carries definitions from an earlier
// run.
func (r Registrar) Stage(ctx context.Context, sources []types.RepositorySource, sandbox types.SandboxPaths) ([]string, error) {
	var paths []string
	for _, source := range sources {
		if source.Kind == types.SourceRepoFile {
			paths = append(paths, source.Path)
		}
	}
	staged, err := r.RepoFiles.Stage(paths, sandbox.Repos)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Debug().Int("files", len(staged)).Str("dir", sandbox.Repos).Msg("repo files staged")
	return staged, nil
}

// Register adds every bare URL source to env and fetches its metadata,
// one repository at a time. The first fetch failure aborts.
func (r Registrar) Register(ctx context.Context, env ports.ResolverPort, sources []types.RepositorySource) error {
	index := 0
	for _, source := range sources {
		if source.Kind != types.SourceBareURL {
			continue
		}
		id := fmt.Sprintf("%s%d", bareRepoPrefix, index)
		index++
		if IsSourceRepository(source.URL) {
			r.Narrator.Printf("Skipping source repo: %s", source.URL)
			log.Ctx(ctx).Debug().Str("url", source.URL).Msg("source repository skipped")
			continue
		}
		repo := types.Repository{
			ID:                id,
			Name:              id,
			BaseURLs:          []string{source.URL},
			Enabled:           true,
			SkipIfUnavailable: false,
			Origin:            types.RepositoryOriginURL,
		}
		r.Narrator.Printf("Adding %s: %s", id, source.URL)
		if err := env.RegisterRepository(repo); err != nil {
			return err
		}
		r.Narrator.Printf("Fetching metadata for %s", id)
		if err := env.LoadRepository(ctx, id); err != nil {
			return &RepositoryError{Name: id, Cause: err}
		}
	}
	return nil
}
