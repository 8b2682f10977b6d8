package core

import (
	"bytes"
	"context"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkglist/internal/types"
)

func TestTransactionBuilderEmptyRequest(t *testing.T) {
	env := newFakeResolver()
	_, err := NewTransactionBuilder(Narrator{}).Solve(context.Background(), env, nil, "runtime-install.tmpl")

	var empty *EmptyRequestError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "runtime-install.tmpl", empty.Template)
	assert.Empty(t, env.goals)
	assert.False(t, env.resolved)
}

func TestTransactionBuilderCollectsEveryMissingPackage(t *testing.T) {
	env := newFakeResolver("httpd")
	requests := []string{"ghost", "httpd", "phantom"}

	_, err := NewTransactionBuilder(Narrator{}).Solve(context.Background(), env, requests, "t")

	var missing *MissingPackagesError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"ghost", "phantom"}, missing.Requests())
	assert.Contains(t, err.Error(), "ghost (no package matches ghost)")
	assert.Contains(t, err.Error(), "phantom")
	assert.Equal(t, []string{"httpd"}, env.goals, "every request is still submitted")
	assert.False(t, env.resolved, "resolution is not attempted after submission failures")
}

func TestTransactionBuilderSubmitsDuplicatesIndividually(t *testing.T) {
	env := newFakeResolver("foo")
	env.transaction = []types.TransactionEntry{{Name: "foo", Epoch: "0", Version: "1", Release: "1", Arch: "noarch", RepoID: "r"}}

	_, err := NewTransactionBuilder(Narrator{}).Solve(context.Background(), env, []string{"foo", "foo"}, "t")

	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "foo"}, env.goals)
}

func TestTransactionBuilderDepsolveError(t *testing.T) {
	env := newFakeResolver("httpd")
	cause := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("nothing provides apr needed by httpd-2.4.0-1.x86_64")
	env.resolveErr = cause

	_, err := NewTransactionBuilder(Narrator{}).Solve(context.Background(), env, []string{"httpd"}, "t")

	var depsolve *DepsolveError
	require.ErrorAs(t, err, &depsolve)
	assert.Equal(t, error(cause), depsolve.Cause)
	assert.Equal(t, "depsolve failed: nothing provides apr needed by httpd-2.4.0-1.x86_64", err.Error())
}

func TestTransactionBuilderEmptyTransaction(t *testing.T) {
	env := newFakeResolver("httpd")
	_, err := NewTransactionBuilder(Narrator{}).Solve(context.Background(), env, []string{"httpd"}, "t")

	var empty *EmptyTransactionError
	require.ErrorAs(t, err, &empty)
	assert.True(t, env.resolved)
}

func TestTransactionBuilderOutcome(t *testing.T) {
	env := newFakeResolver("httpd", "broken")
	env.transaction = []types.TransactionEntry{
		{Name: "httpd", Epoch: "0", Version: "2.4.0", Release: "1", Arch: "x86_64", RepoID: "lorax-repo-0"},
		{Name: "apr", Epoch: "0", Version: "1.6", Release: "2", Arch: "x86_64", RepoID: "lorax-repo-0"},
	}
	env.skipped = []string{"broken"}
	var out bytes.Buffer

	outcome, err := NewTransactionBuilder(NewNarrator(&out, true)).Solve(context.Background(), env, []string{"httpd", "broken"}, "t")

	require.NoError(t, err)
	assert.Len(t, outcome.Entries, 2)
	assert.Equal(t, []string{"broken"}, outcome.Skipped)
	assert.Contains(t, out.String(), "Adding httpd to the transaction")
	assert.Contains(t, out.String(), "Skipping broken request broken")
	assert.Contains(t, out.String(), "2 packages in the transaction")
}
