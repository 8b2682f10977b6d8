package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pkglist/internal/types"
)

// memoryMetadata serves repository metadata keyed by repository location.
type memoryMetadata struct {
	repos   map[string]types.RepoMetadata
	errs    map[string]error
	fetched []types.Repository
}

func newMemoryMetadata() *memoryMetadata {
	return &memoryMetadata{repos: map[string]types.RepoMetadata{}, errs: map[string]error{}}
}

func (m *memoryMetadata) Fetch(_ context.Context, repo types.Repository, _ types.ResolverConfig) (types.RepoMetadata, error) {
	m.fetched = append(m.fetched, repo)
	location := repo.Location()
	if err, ok := m.errs[location]; ok {
		return types.RepoMetadata{}, err
	}
	md, ok := m.repos[location]
	if !ok {
		return types.RepoMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("%s not found", location))
	}
	md.RepoID = repo.ID
	return md, nil
}

// rpm builds a package from "name-version-release.arch" and capability
// strings such as "apr >= 1.6".
func rpm(nvra string, requires ...string) types.Package {
	dot := strings.LastIndex(nvra, ".")
	arch := nvra[dot+1:]
	rest := nvra[:dot]
	relIdx := strings.LastIndex(rest, "-")
	release := rest[relIdx+1:]
	rest = rest[:relIdx]
	verIdx := strings.LastIndex(rest, "-")
	pkg := types.Package{
		Name:    rest[:verIdx],
		Epoch:   "0",
		Version: rest[verIdx+1:],
		Release: release,
		Arch:    arch,
	}
	for _, req := range requires {
		pkg.Requires = append(pkg.Requires, capability(req))
	}
	return pkg
}

var testFlags = map[string]types.CapabilityFlag{
	"=":  types.CapabilityFlagEQ,
	"<":  types.CapabilityFlagLT,
	"<=": types.CapabilityFlagLE,
	">":  types.CapabilityFlagGT,
	">=": types.CapabilityFlagGE,
}

func capability(value string) types.Capability {
	fields := strings.Fields(value)
	if len(fields) != 3 {
		return types.Capability{Name: fields[0]}
	}
	out := types.Capability{Name: fields[0], Flags: testFlags[fields[1]], Epoch: "0", Version: fields[2]}
	if idx := strings.Index(out.Version, ":"); idx >= 0 {
		out.Epoch = out.Version[:idx]
		out.Version = out.Version[idx+1:]
	}
	if idx := strings.LastIndex(out.Version, "-"); idx >= 0 {
		out.Release = out.Version[idx+1:]
		out.Version = out.Version[:idx]
	}
	return out
}

// fakeResolver records orchestration calls without resolving anything.
type fakeResolver struct {
	config      types.ResolverConfig
	registered  []types.Repository
	loaded      []string
	loadErrs    map[string]error
	registerErr error
	poolLoads   int
	poolErr     error
	available   map[string]bool
	goals       []string
	resolved    bool
	resolveErr  error
	transaction []types.TransactionEntry
	skipped     []string
}

func newFakeResolver(available ...string) *fakeResolver {
	f := &fakeResolver{available: map[string]bool{}, loadErrs: map[string]error{}}
	for _, name := range available {
		f.available[name] = true
	}
	return f
}

func (f *fakeResolver) Config() types.ResolverConfig { return f.config }

func (f *fakeResolver) RegisterRepository(repo types.Repository) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, repo)
	return nil
}

func (f *fakeResolver) Repositories() []types.Repository { return f.registered }

func (f *fakeResolver) LoadRepository(_ context.Context, id string) error {
	if err, ok := f.loadErrs[id]; ok {
		return err
	}
	f.loaded = append(f.loaded, id)
	return nil
}

func (f *fakeResolver) LoadPool(context.Context) error {
	f.poolLoads++
	return f.poolErr
}

func (f *fakeResolver) AddInstallGoal(request string) error {
	if !f.available[request] {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("no package matches " + request)
	}
	f.goals = append(f.goals, request)
	return nil
}

func (f *fakeResolver) Resolve(context.Context) error {
	f.resolved = true
	return f.resolveErr
}

func (f *fakeResolver) Transaction() []types.TransactionEntry { return f.transaction }

func (f *fakeResolver) Skipped() []string { return f.skipped }

type fakeRepoFiles struct {
	staged [][]string
	repos  []types.Repository
	err    error
}

func (f *fakeRepoFiles) Stage(paths []string, reposDir string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.staged = append(f.staged, paths)
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		out = append(out, reposDir+"/"+path[strings.LastIndex(path, "/")+1:])
	}
	return out, nil
}

func (f *fakeRepoFiles) Load(string) ([]types.Repository, error) {
	return f.repos, f.err
}

func testSandbox() types.SandboxPaths {
	return types.SandboxPaths{
		Root:        "/tmp/pkglist.test",
		Cache:       "/tmp/pkglist.test/cache",
		Logs:        "/tmp/pkglist.test/logs",
		Repos:       "/tmp/pkglist.test/repos.d",
		InstallRoot: "/tmp/pkglist.test/installroot",
	}
}
