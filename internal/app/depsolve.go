package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pkglist/internal/core"
	"pkglist/internal/types"
)

// Depsolve resolves the template's packages against the given sources and
// prints the transaction. The sandbox is released on every return path.
func (s Service) Depsolve(ctx context.Context, req DepsolveRequest) (result DepsolveResult, err error) {
	template := strings.TrimSpace(req.Template)
	if template == "" {
		return DepsolveResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("template path is required")
	}
	if strings.TrimSpace(req.Release) == "" {
		return DepsolveResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("release version is required")
	}
	requests, err := s.Templates.PackageNames(template)
	if err != nil {
		return DepsolveResult{}, err
	}

	out := s.out()
	narrator := core.NewNarrator(out, req.Verbose)
	sandbox, err := s.Sandbox.Acquire(ctx, req.TempDir)
	if err != nil {
		return DepsolveResult{}, err
	}
	releaseCtx := ctx
	defer func() {
		if releaseErr := s.Sandbox.Release(releaseCtx, sandbox, req.Keep); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	narrator.Printf("Using tempdir: %s", sandbox.Root)

	ctx, closeLog := s.bindRunLog(ctx, sandbox)
	defer closeLog()

	registrar := core.NewRegistrar(s.RepoFiles, narrator)
	sources := registrar.Classify(ctx, req.Sources)
	if _, err := registrar.Stage(ctx, sources, sandbox); err != nil {
		return DepsolveResult{}, err
	}

	builder := core.NewEnvironmentBuilder(s.Metadata, s.RepoFiles, narrator)
	if s.NewResolver != nil {
		builder = builder.WithResolverFactory(s.NewResolver)
	}
	env, err := builder.Build(ctx, sandbox, core.EnvironmentOptions{
		ReleaseVersion: req.Release,
		BaseArch:       req.Arch,
		SkipBroken:     req.SkipBroken,
		Proxy:          req.Proxy,
	})
	if err != nil {
		return DepsolveResult{}, err
	}
	if err := registrar.Register(ctx, env, sources); err != nil {
		return DepsolveResult{}, err
	}
	if err := builder.Load(ctx, env); err != nil {
		return DepsolveResult{}, err
	}

	outcome, err := core.NewTransactionBuilder(narrator).Solve(ctx, env, requests, template)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("depsolve failed")
		return DepsolveResult{}, err
	}
	for line := range core.NewReporter().Report(outcome, req.Verbose) {
		_, _ = fmt.Fprintln(out, line)
	}
	if output := strings.TrimSpace(req.Output); output != "" {
		if err := s.TransactionWriter.Write(output, outcome.Entries); err != nil {
			return DepsolveResult{}, err
		}
		log.Ctx(ctx).Info().Str("path", output).Msg("transaction written")
	}
	return DepsolveResult{
		SandboxRoot: sandbox.Root,
		Entries:     outcome.Entries,
		Skipped:     outcome.Skipped,
	}, nil
}

// bindRunLog attaches a logger writing to the console and to the sandbox
// log file. Without a log sink the context is returned unchanged.
func (s Service) bindRunLog(ctx context.Context, sandbox types.SandboxPaths) (context.Context, func()) {
	if s.LogSink == nil {
		return ctx, func() {}
	}
	file, err := s.LogSink.Open(sandbox.Logs)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("run log unavailable")
		return ctx, func() {}
	}
	writers := []io.Writer{file}
	if s.LogConsole != nil {
		writers = append(writers, s.LogConsole)
	}
	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Str("sandbox", filepath.Base(sandbox.Root)).
		Logger()
	return logger.WithContext(ctx), func() { _ = file.Close() }
}
