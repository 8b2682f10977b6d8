package core

import (
	"context"

	"github.com/rs/zerolog/log"

	"pkglist/internal/ports"
	"pkglist/internal/types"
)

type TransactionBuilder struct {
	Narrator Narrator
}

func NewTransactionBuilder(narrator Narrator) TransactionBuilder {
	return TransactionBuilder{Narrator: narrator}
}

// Solve submits every request as an install goal and resolves them. All
// submission failures are collected before giving up, so the error names
// every missing package rather than the first.
func (b TransactionBuilder) Solve(ctx context.Context, env ports.ResolverPort, requests []string, template string) (types.ResolutionOutcome, error) {
	if len(requests) == 0 {
		return types.ResolutionOutcome{}, &EmptyRequestError{Template: template}
	}
	var failures []RequestFailure
	for _, request := range requests {
		b.Narrator.Printf("Adding %s to the transaction", request)
		if err := env.AddInstallGoal(request); err != nil {
			log.Ctx(ctx).Debug().Err(err).Str("request", request).Msg("install request rejected")
			failures = append(failures, RequestFailure{Request: request, Cause: err})
		}
	}
	if len(failures) > 0 {
		return types.ResolutionOutcome{}, &MissingPackagesError{Failures: failures}
	}

	b.Narrator.Printf("Checking dependencies")
	if err := env.Resolve(ctx); err != nil {
		return types.ResolutionOutcome{}, &DepsolveError{Cause: err}
	}
	entries := env.Transaction()
	if len(entries) == 0 {
		return types.ResolutionOutcome{}, &EmptyTransactionError{}
	}
	skipped := env.Skipped()
	for _, request := range skipped {
		b.Narrator.Printf("Skipping broken request %s", request)
	}
	b.Narrator.Printf("%d packages in the transaction", len(entries))
	log.Ctx(ctx).Debug().Int("packages", len(entries)).Int("skipped", len(skipped)).Msg("transaction resolved")
	return types.ResolutionOutcome{Entries: entries, Skipped: skipped}, nil
}
