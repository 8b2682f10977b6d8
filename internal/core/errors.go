package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// RepositoryError reports a repository whose metadata could not be
// fetched. It aborts the run; partial repository sets are never used.
type RepositoryError struct {
	Name  string
	Cause error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("failed to load repository %s: %s", e.Name, describe(e.Cause))
}

func (e *RepositoryError) Unwrap() error {
	return e.Cause
}

type EmptyRequestError struct {
	Template string
}

func (e *EmptyRequestError) Error() string {
	return fmt.Sprintf("no packages requested by %s", e.Template)
}

// RequestFailure pairs a seed request with the reason it could not be
// added to the transaction.
type RequestFailure struct {
	Request string
	Cause   error
}

type MissingPackagesError struct {
	Failures []RequestFailure
}

func (e *MissingPackagesError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s (%s)", failure.Request, describe(failure.Cause)))
	}
	return "missing packages: " + strings.Join(parts, ", ")
}

// Requests lists the failing requests in submission order.
func (e *MissingPackagesError) Requests() []string {
	out := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		out = append(out, failure.Request)
	}
	return out
}

type DepsolveError struct {
	Cause error
}

func (e *DepsolveError) Error() string {
	return fmt.Sprintf("depsolve failed: %s", describe(e.Cause))
}

func (e *DepsolveError) Unwrap() error {
	return e.Cause
}

// EmptyTransactionError means the solver succeeded without selecting a
// single package. Since the request list is never empty at that point it
// indicates a broken environment, e.g. every repository being empty.
type EmptyTransactionError struct{}

func (e *EmptyTransactionError) Error() string {
	return "empty transaction: the resolver selected no packages"
}

// describe prefers the message of a coded error over its full rendering.
func describe(err error) string {
	if err == nil {
		return "unknown error"
	}
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}
