package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"

	"pkglist/internal/ports"
	"pkglist/internal/types"
)

// Resolver is a resolution environment: registered repositories, the
// candidate pool built from them, and the install goals submitted so far.
// It is the repodata/SAT implementation of ports.ResolverPort.
type Resolver struct {
	config      types.ResolverConfig
	metadata    ports.MetadataPort
	repos       []types.Repository
	loaded      map[string]types.RepoMetadata
	pool        *pool
	goals       []installGoal
	transaction []types.TransactionEntry
	skipped     []string
	cache       *evrCache
}

type installGoal struct {
	request    string
	candidates []int
}

type provider struct {
	pkg        int
	capability types.Capability
}

type pool struct {
	packages []types.Package
	byName   map[string][]int
	provides map[string][]provider
	groups   []types.Group
}

func NewResolver(config types.ResolverConfig, metadata ports.MetadataPort) *Resolver {
	return &Resolver{
		config:   config,
		metadata: metadata,
		loaded:   map[string]types.RepoMetadata{},
		cache:    newEVRCache(),
	}
}

func (r *Resolver) Config() types.ResolverConfig {
	return r.config
}

func (r *Resolver) Repositories() []types.Repository {
	return append([]types.Repository(nil), r.repos...)
}

func (r *Resolver) RegisterRepository(repo types.Repository) error {
	id := strings.TrimSpace(repo.ID)
	if id == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository id is required")
	}
	if _, ok := r.findRepo(id); ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg(fmt.Sprintf("repository %s already registered", id))
	}
	repo.BaseURLs = expandAll(repo.BaseURLs, r.config)
	repo.MirrorList = expandRepoVars(repo.MirrorList, r.config)
	repo.Metalink = expandRepoVars(repo.Metalink, r.config)
	if IsSourceRepository(repo.Location()) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("repository %s is a source package repository", id))
	}
	r.repos = append(r.repos, repo)
	r.pool = nil
	return nil
}

func (r *Resolver) LoadRepository(ctx context.Context, id string) error {
	repo, ok := r.findRepo(id)
	if !ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("repository %s is not registered", id))
	}
	md, err := r.metadata.Fetch(ctx, repo, r.config)
	if err != nil {
		return err
	}
	r.loaded[id] = md
	r.pool = nil
	log.Ctx(ctx).Debug().
		Str("repo", id).
		Int("packages", len(md.Packages)).
		Int("groups", len(md.Groups)).
		Msg("repository metadata loaded")
	return nil
}

func (r *Resolver) LoadPool(ctx context.Context) error {
	var usable []types.Repository
	for _, repo := range r.repos {
		if !repo.Enabled {
			continue
		}
		if _, ok := r.loaded[repo.ID]; !ok {
			if err := r.LoadRepository(ctx, repo.ID); err != nil {
				if repo.SkipIfUnavailable {
					log.Ctx(ctx).Warn().Err(err).Str("repo", repo.ID).Msg("repository unavailable, skipping")
					continue
				}
				return &RepositoryError{Name: repo.ID, Cause: err}
			}
		}
		usable = append(usable, repo)
	}
	p, err := buildPool(usable, r.loaded, r.config.BaseArch, r.cache)
	if err != nil {
		return err
	}
	r.pool = p
	log.Ctx(ctx).Debug().
		Int("repos", len(usable)).
		Int("packages", len(p.packages)).
		Int("groups", len(p.groups)).
		Msg("candidate pool built")
	return nil
}

func (r *Resolver) AddInstallGoal(request string) error {
	if r.pool == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("package pool is not loaded")
	}
	spec := strings.TrimSpace(request)
	if spec == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("empty package request")
	}
	var goals []installGoal
	var err error
	if strings.HasPrefix(spec, "@") {
		goals, err = r.groupGoals(request, strings.TrimPrefix(spec, "@"))
	} else {
		goals, err = r.packageGoals(request, spec)
	}
	if err != nil {
		return err
	}
	r.goals = append(r.goals, goals...)
	return nil
}

func (r *Resolver) Resolve(ctx context.Context) error {
	if r.pool == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("package pool is not loaded")
	}
	if len(r.goals) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no install goals submitted")
	}
	selected, skipped, err := solveGoals(ctx, r.pool, r.goals, r.config.SkipBroken, r.cache)
	if err != nil {
		return err
	}
	entries := make([]types.TransactionEntry, 0, len(selected))
	for _, idx := range selected {
		entries = append(entries, types.EntryFromPackage(r.pool.packages[idx]))
	}
	r.transaction = entries
	r.skipped = skipped
	return nil
}

func (r *Resolver) Transaction() []types.TransactionEntry {
	return append([]types.TransactionEntry(nil), r.transaction...)
}

func (r *Resolver) Skipped() []string {
	return append([]string(nil), r.skipped...)
}

func (r *Resolver) findRepo(id string) (types.Repository, bool) {
	for _, repo := range r.repos {
		if repo.ID == id {
			return repo, true
		}
	}
	return types.Repository{}, false
}

// packageGoals matches spec against package names, NEVRA forms and, as a
// last resort, provided capabilities. A glob yields one goal per name.
func (r *Resolver) packageGoals(request string, spec string) ([]installGoal, error) {
	if ids, ok := r.pool.byName[spec]; ok {
		return []installGoal{{request: request, candidates: ids}}, nil
	}
	match, err := formMatcher(spec)
	if err != nil {
		return nil, err
	}
	byName := map[string][]int{}
	for idx, pkg := range r.pool.packages {
		for _, form := range packageForms(pkg) {
			if match(form) {
				byName[pkg.Name] = append(byName[pkg.Name], idx)
				break
			}
		}
	}
	if len(byName) > 0 {
		names := make([]string, 0, len(byName))
		for name := range byName {
			names = append(names, name)
		}
		sort.Strings(names)
		goals := make([]installGoal, 0, len(names))
		for _, name := range names {
			goals = append(goals, installGoal{request: request, candidates: byName[name]})
		}
		return goals, nil
	}
	if providers := r.pool.whatProvides(types.Capability{Name: spec}, r.cache); len(providers) > 0 {
		return []installGoal{{request: request, candidates: providers}}, nil
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("no package matches %s", spec))
}

func (r *Resolver) groupGoals(request string, id string) ([]installGoal, error) {
	group, ok := r.pool.findGroup(id)
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no group named %s", id))
	}
	var goals []installGoal
	for _, member := range group.Packages {
		if member.Type != types.GroupPackageMandatory && member.Type != types.GroupPackageDefault {
			continue
		}
		ids, ok := r.pool.byName[member.Name]
		if !ok {
			continue
		}
		goals = append(goals, installGoal{request: request, candidates: ids})
	}
	if len(goals) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("group %s has no installable packages", id))
	}
	return goals, nil
}

func buildPool(repos []types.Repository, loaded map[string]types.RepoMetadata, baseArch string, cache *evrCache) (*pool, error) {
	p := &pool{
		byName:   map[string][]int{},
		provides: map[string][]provider{},
	}
	seenGroups := map[string]struct{}{}
	for _, repo := range repos {
		excluded, err := compileGlobs(repo.Excludes)
		if err != nil {
			return nil, err
		}
		md := loaded[repo.ID]
		for _, pkg := range md.Packages {
			if !archCompatible(baseArch, pkg.Arch) {
				continue
			}
			if matchesAny(excluded, pkg.Name) {
				continue
			}
			pkg.RepoID = repo.ID
			p.add(pkg)
		}
		for _, group := range md.Groups {
			if _, ok := seenGroups[group.ID]; ok {
				continue
			}
			seenGroups[group.ID] = struct{}{}
			p.groups = append(p.groups, group)
		}
	}
	for name, ids := range p.byName {
		sort.SliceStable(ids, func(i, j int) bool {
			return cache.comparePackages(p.packages[ids[i]], p.packages[ids[j]]) < 0
		})
		p.byName[name] = ids
	}
	return p, nil
}

func (p *pool) add(pkg types.Package) {
	idx := len(p.packages)
	p.packages = append(p.packages, pkg)
	p.byName[pkg.Name] = append(p.byName[pkg.Name], idx)
	p.provides[pkg.Name] = append(p.provides[pkg.Name], provider{pkg: idx, capability: selfProvide(pkg)})
	for _, capability := range pkg.Provides {
		if capability.Name == pkg.Name && capability.Versioned() {
			continue
		}
		p.provides[capability.Name] = append(p.provides[capability.Name], provider{pkg: idx, capability: capability})
	}
	for _, file := range pkg.Files {
		p.provides[file] = append(p.provides[file], provider{pkg: idx, capability: types.Capability{Name: file}})
	}
}

// whatProvides returns the pool indexes of packages providing req.
func (p *pool) whatProvides(req types.Capability, cache *evrCache) []int {
	var out []int
	for _, candidate := range p.provides[req.Name] {
		if cache.satisfies(req, candidate.capability) {
			out = append(out, candidate.pkg)
		}
	}
	return uniqueInts(out)
}

func (p *pool) findGroup(id string) (types.Group, bool) {
	for _, group := range p.groups {
		if strings.EqualFold(group.ID, id) || strings.EqualFold(group.Name, id) {
			return group, true
		}
	}
	return types.Group{}, false
}

// packageForms lists the strings a request may use to name pkg.
func packageForms(pkg types.Package) []string {
	vr := pkg.Version + "-" + pkg.Release
	forms := []string{
		pkg.Name,
		pkg.Name + "." + pkg.Arch,
		pkg.Name + "-" + pkg.Version,
		pkg.Name + "-" + vr,
		pkg.Name + "-" + vr + "." + pkg.Arch,
	}
	if pkg.Epoch != "" && pkg.Epoch != "0" {
		evr := pkg.Epoch + ":" + vr
		forms = append(forms, pkg.Name+"-"+evr, pkg.Name+"-"+evr+"."+pkg.Arch)
	}
	return forms
}

func formMatcher(spec string) (func(string) bool, error) {
	if !isGlob(spec) {
		return func(form string) bool { return form == spec }, nil
	}
	compiled, err := glob.Compile(spec)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid package glob %s", spec)).
			WithCause(err)
	}
	return compiled.Match, nil
}

func isGlob(value string) bool {
	return strings.ContainsAny(value, "*?[")
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		compiled, err := glob.Compile(pattern)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid exclude pattern %s", pattern)).
				WithCause(err)
		}
		out = append(out, compiled)
	}
	return out, nil
}

func matchesAny(globs []glob.Glob, value string) bool {
	for _, g := range globs {
		if g.Match(value) {
			return true
		}
	}
	return false
}

var repoVarNames = []string{"releasever", "basearch", "arch"}

// expandRepoVars substitutes $releasever, $basearch and $arch (bare or
// braced) in a repository location.
func expandRepoVars(value string, cfg types.ResolverConfig) string {
	if !strings.Contains(value, "$") {
		return value
	}
	values := map[string]string{
		"releasever": cfg.ReleaseVersion,
		"basearch":   cfg.BaseArch,
		"arch":       cfg.BaseArch,
	}
	for _, name := range repoVarNames {
		value = strings.ReplaceAll(value, "${"+name+"}", values[name])
		value = strings.ReplaceAll(value, "$"+name, values[name])
	}
	return value
}

func expandAll(values []string, cfg types.ResolverConfig) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, expandRepoVars(value, cfg))
	}
	return out
}

var _ ports.ResolverPort = (*Resolver)(nil)
