package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkglist/internal/adapters"
	"pkglist/internal/core"
	"pkglist/tests/testutil"
)

// newTestService wires the real adapters with fresh sandboxes created
// under a per-test directory.
func newTestService(t *testing.T) (Service, *bytes.Buffer, string) {
	t.Helper()
	out := &bytes.Buffer{}
	sandboxes := t.TempDir()
	svc := NewService()
	svc.Sandbox = adapters.SandboxDirAdapter{BaseDir: sandboxes}
	svc.Out = out
	svc.LogConsole = nil
	return svc, out, sandboxes
}

func writeHTTPDRepo(t *testing.T) string {
	t.Helper()
	return testutil.WriteRepo(t, t.TempDir(), []testutil.RepoPackage{
		{Name: "httpd", Version: "2.4.0", Release: "1", Arch: "x86_64", Requires: []string{"apr >= 1.6"}},
		{Name: "apr", Version: "1.6", Release: "2", Arch: "x86_64"},
		{Name: "apr", Version: "1.5", Release: "1", Arch: "x86_64"},
		{Name: "unrelated", Version: "1.0", Release: "1", Arch: "x86_64"},
	}, testutil.RepoOptions{})
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testutil.RepoRoot(t), "fixtures", name)
}

func sandboxEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestListPrintsDistinctSortedNames(t *testing.T) {
	svc, out, _ := newTestService(t)

	result, err := svc.List(context.Background(), ListRequest{Template: fixture(t, "list-packages.tmpl")})

	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "foo"}, result.Packages)
	assert.Equal(t, "bar\nfoo\n", out.String())
}

func TestListRequiresTemplate(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.List(context.Background(), ListRequest{Template: " "})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestListMissingTemplate(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.List(context.Background(), ListRequest{Template: filepath.Join(t.TempDir(), "nope.tmpl")})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestDepsolveResolvesTemplate(t *testing.T) {
	svc, out, sandboxes := newTestService(t)
	repo := writeHTTPDRepo(t)

	result, err := svc.Depsolve(context.Background(), DepsolveRequest{
		Template: fixture(t, "runtime-install.tmpl"),
		Release:  "39",
		Arch:     "x86_64",
		Sources:  []string{repo},
	})

	require.NoError(t, err)
	want := "apr-1.6-2.x86_64\nhttpd-2.4.0-1.x86_64\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("unexpected output (-want +got):\n%s", diff)
	}
	assert.Len(t, result.Entries, 2)
	assert.Empty(t, result.Skipped)
	assert.NoDirExists(t, result.SandboxRoot)
	assert.Empty(t, sandboxEntries(t, sandboxes))
}

func TestDepsolveVerboseNarratesAndShowsRepo(t *testing.T) {
	svc, out, _ := newTestService(t)
	repo := writeHTTPDRepo(t)

	_, err := svc.Depsolve(context.Background(), DepsolveRequest{
		Template: fixture(t, "runtime-install.tmpl"),
		Release:  "39",
		Arch:     "x86_64",
		Sources:  []string{"file://" + repo, "bogus-source"},
		Verbose:  true,
	})

	require.NoError(t, err)
	output := out.String()
	assert.Contains(t, output, "Using tempdir: ")
	assert.Contains(t, output, "Skipping unsupported repository source bogus-source")
	assert.Contains(t, output, "Adding lorax-repo-0: file://"+repo)
	assert.Contains(t, output, "Adding httpd to the transaction")
	assert.Contains(t, output, "apr-1.6-2.x86_64 (lorax-repo-0)\nhttpd-2.4.0-1.x86_64 (lorax-repo-0)\n")
}

// writeRepoFile writes local.repo into a fresh directory and makes that
// the working directory, since only relative paths classify as .repo
// sources.
func writeRepoFile(t *testing.T, repo string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "local.repo", fmt.Sprintf(`[local]
name=Local packages
baseurl=file://%s
enabled=1

[local-source]
name=Local sources
baseurl=file://%s/SRPMS
enabled=1
`, repo, repo))
	t.Chdir(dir)
	return "local.repo"
}

func TestDepsolveUsesRepoFiles(t *testing.T) {
	svc, out, _ := newTestService(t)
	template := fixture(t, "runtime-install.tmpl")
	repoFile := writeRepoFile(t, writeHTTPDRepo(t))

	_, err := svc.Depsolve(context.Background(), DepsolveRequest{
		Template: template,
		Release:  "39",
		Arch:     "x86_64",
		Sources:  []string{repoFile},
		Verbose:  true,
	})

	require.NoError(t, err)
	output := out.String()
	assert.Contains(t, output, "Adding local from repo file")
	assert.Contains(t, output, "Skipping source repo: local-source")
	assert.Contains(t, output, "apr-1.6-2.x86_64 (local)\nhttpd-2.4.0-1.x86_64 (local)\n")
	assert.NotContains(t, output, "lorax-repo-")
}

func TestDepsolveReusedTempdirDropsEarlierRepoFiles(t *testing.T) {
	svc, out, _ := newTestService(t)
	template := fixture(t, "runtime-install.tmpl")
	repo := writeHTTPDRepo(t)
	tempdir := filepath.Join(t.TempDir(), "sandbox")
	repoFile := writeRepoFile(t, repo)

	_, err := svc.Depsolve(context.Background(), DepsolveRequest{
		Template: template,
		Release:  "39",
		Arch:     "x86_64",
		Sources:  []string{repoFile},
		TempDir:  tempdir,
		Keep:     true,
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(tempdir, "repos.d", "local.repo"))

	out.Reset()
	_, err = svc.Depsolve(context.Background(), DepsolveRequest{
		Template: template,
		Release:  "39",
		Arch:     "x86_64",
		Sources:  []string{repo},
		TempDir:  tempdir,
		Keep:     true,
		Verbose:  true,
	})

	require.NoError(t, err)
	output := out.String()
	assert.NotContains(t, output, "Adding local from repo file")
	assert.Contains(t, output, "Building package pool from 1 repositories")
	assert.Contains(t, output, "httpd-2.4.0-1.x86_64 (lorax-repo-0)")
	assert.NoFileExists(t, filepath.Join(tempdir, "repos.d", "local.repo"))
}

func TestDepsolveKeepsSandboxAndWritesOutput(t *testing.T) {
	svc, _, _ := newTestService(t)
	repo := writeHTTPDRepo(t)
	tempdir := filepath.Join(t.TempDir(), "sandbox")
	output := filepath.Join(t.TempDir(), "transaction.yaml")

	result, err := svc.Depsolve(context.Background(), DepsolveRequest{
		Template: fixture(t, "runtime-install.tmpl"),
		Release:  "39",
		Arch:     "x86_64",
		Sources:  []string{repo},
		TempDir:  tempdir,
		Keep:     true,
		Output:   output,
	})

	require.NoError(t, err)
	assert.Equal(t, tempdir, result.SandboxRoot)
	assert.DirExists(t, filepath.Join(tempdir, "cache", "lorax-repo-0"))
	assert.FileExists(t, filepath.Join(tempdir, "logs", "pkglist.log"))
	file, err := adapters.ReadTransactionFile(output)
	require.NoError(t, err)
	require.Len(t, file.Packages, 2)
	assert.Equal(t, "apr", file.Packages[0].Name)
	assert.Equal(t, "httpd", file.Packages[1].Name)
}

func TestDepsolveMissingPackageReleasesSandbox(t *testing.T) {
	svc, out, sandboxes := newTestService(t)
	repo := writeHTTPDRepo(t)

	_, err := svc.Depsolve(context.Background(), DepsolveRequest{
		Template: fixture(t, "missing-package.tmpl"),
		Release:  "39",
		Arch:     "x86_64",
		Sources:  []string{repo},
	})

	require.Error(t, err)
	var missing *core.MissingPackagesError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"nonexistent-pkg"}, missing.Requests())
	assert.Empty(t, out.String())
	assert.Empty(t, sandboxEntries(t, sandboxes))
}

func TestDepsolveUnreachableRepository(t *testing.T) {
	svc, _, sandboxes := newTestService(t)

	_, err := svc.Depsolve(context.Background(), DepsolveRequest{
		Template: fixture(t, "runtime-install.tmpl"),
		Release:  "39",
		Arch:     "x86_64",
		Sources:  []string{filepath.Join(t.TempDir(), "missing")},
	})

	require.Error(t, err)
	var repoErr *core.RepositoryError
	require.True(t, errors.As(err, &repoErr))
	assert.Equal(t, "lorax-repo-0", repoErr.Name)
	assert.Empty(t, sandboxEntries(t, sandboxes))
}

func TestDepsolveEmptyTemplate(t *testing.T) {
	svc, _, sandboxes := newTestService(t)
	repo := writeHTTPDRepo(t)

	_, err := svc.Depsolve(context.Background(), DepsolveRequest{
		Template: fixture(t, "empty.tmpl"),
		Release:  "39",
		Sources:  []string{repo},
	})

	var empty *core.EmptyRequestError
	require.True(t, errors.As(err, &empty))
	assert.Empty(t, sandboxEntries(t, sandboxes))
}

func TestDepsolveSkipBroken(t *testing.T) {
	svc, out, _ := newTestService(t)
	repo := testutil.WriteRepo(t, t.TempDir(), []testutil.RepoPackage{
		{Name: "foo", Version: "1.0", Release: "1", Arch: "x86_64"},
		{Name: "bar", Version: "1.0", Release: "1", Arch: "x86_64", Requires: []string{"libmissing"}},
	}, testutil.RepoOptions{})

	result, err := svc.Depsolve(context.Background(), DepsolveRequest{
		Template:   fixture(t, "list-packages.tmpl"),
		Release:    "39",
		Arch:       "x86_64",
		Sources:    []string{repo},
		SkipBroken: true,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"bar"}, result.Skipped)
	assert.Equal(t, "foo-1.0-1.x86_64\n", out.String())
}

func TestDepsolveBrokenDependencyFails(t *testing.T) {
	svc, _, _ := newTestService(t)
	repo := testutil.WriteRepo(t, t.TempDir(), []testutil.RepoPackage{
		{Name: "foo", Version: "1.0", Release: "1", Arch: "x86_64"},
		{Name: "bar", Version: "1.0", Release: "1", Arch: "x86_64", Requires: []string{"libmissing"}},
	}, testutil.RepoOptions{})

	_, err := svc.Depsolve(context.Background(), DepsolveRequest{
		Template: fixture(t, "list-packages.tmpl"),
		Release:  "39",
		Arch:     "x86_64",
		Sources:  []string{repo},
	})

	var depsolveErr *core.DepsolveError
	require.True(t, errors.As(err, &depsolveErr))
	assert.True(t, strings.Contains(err.Error(), "nothing provides libmissing needed by bar-1.0-1.x86_64"), err.Error())
}

func TestDepsolveValidatesRequest(t *testing.T) {
	svc, _, sandboxes := newTestService(t)
	tests := []struct {
		name string
		req  DepsolveRequest
	}{
		{name: "missing template", req: DepsolveRequest{Release: "39", Sources: []string{"/srv/repo"}}},
		{name: "missing release", req: DepsolveRequest{Template: fixture(t, "runtime-install.tmpl"), Sources: []string{"/srv/repo"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Depsolve(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
		})
	}
	assert.Empty(t, sandboxEntries(t, sandboxes))
}
