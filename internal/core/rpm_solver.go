package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/crillab/gophersat/solver"
	"github.com/rs/zerolog/log"

	"pkglist/internal/types"
)

// maxExplanations caps the number of diagnostic lines in an
// unsatisfiable-transaction error.
const maxExplanations = 20

// rpmSolverState holds the bookkeeping for one SAT solver invocation.
// Only packages reachable from the goals get a variable.
type rpmSolverState struct {
	pool        *pool
	cache       *evrCache
	varOf       map[int]int
	pkgOf       map[int]int
	order       []int
	skipVars    map[int]int
	varID       int
	costLits    []solver.Lit
	costWeights []int
}

// solveGoals selects a consistent package set satisfying every goal and
// returns the selected pool indexes ordered by package name. With
// skipBroken, unsatisfiable goals are dropped and their requests
// returned instead of failing the whole transaction.
func solveGoals(ctx context.Context, p *pool, goals []installGoal, skipBroken bool, cache *evrCache) ([]int, []string, error) {
	state := newSolverState(p, cache, goals)
	clauses := buildRPMClauses(state, goals, skipBroken)
	log.Ctx(ctx).Debug().
		Int("goals", len(goals)).
		Int("variables", state.varID).
		Int("clauses", len(clauses)).
		Bool("skip_broken", skipBroken).
		Msg("solving transaction")

	model, err := minimize(ctx, state, clauses)
	if err != nil {
		return nil, nil, err
	}
	if model == nil {
		return nil, nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(explainUnsatisfiable(p, goals, cache))
	}

	var selected []int
	for id, idx := range state.pkgOf {
		if model[id-1] {
			selected = append(selected, idx)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		return p.packages[selected[i]].NEVRA() < p.packages[selected[j]].NEVRA()
	})

	var skipped []string
	seen := map[string]struct{}{}
	for i, goal := range goals {
		id, ok := state.skipVars[i]
		if !ok || !model[id-1] {
			continue
		}
		if _, dup := seen[goal.request]; dup {
			continue
		}
		seen[goal.request] = struct{}{}
		skipped = append(skipped, goal.request)
	}
	return selected, skipped, nil
}

// newSolverState walks the requires graph from the goal candidates and
// numbers every reachable package.
func newSolverState(p *pool, cache *evrCache, goals []installGoal) *rpmSolverState {
	s := &rpmSolverState{
		pool:     p,
		cache:    cache,
		varOf:    map[int]int{},
		pkgOf:    map[int]int{},
		skipVars: map[int]int{},
	}
	reachable := map[int]struct{}{}
	var queue []int
	for _, goal := range goals {
		queue = append(queue, goal.candidates...)
	}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if _, ok := reachable[idx]; ok {
			continue
		}
		reachable[idx] = struct{}{}
		for _, req := range p.packages[idx].Requires {
			if ignorableRequire(req) {
				continue
			}
			queue = append(queue, p.whatProvides(req, cache)...)
		}
	}
	ordered := make([]int, 0, len(reachable))
	for idx := range reachable {
		ordered = append(ordered, idx)
	}
	sort.Ints(ordered)
	s.order = ordered
	for _, idx := range ordered {
		s.varID++
		s.varOf[idx] = s.varID
		s.pkgOf[s.varID] = idx
	}
	return s
}

// buildRPMClauses generates the SAT clauses:
//  1. At-most-one: only one version of each package name can be selected.
//  2. Goals: each goal needs one of its candidates (or its skip variable).
//  3. Requires: a selected package needs a provider for each requirement.
//  4. Conflicts and Obsoletes: a selected package excludes the packages
//     they match.
func buildRPMClauses(s *rpmSolverState, goals []installGoal, skipBroken bool) [][]int {
	var clauses [][]int
	byName := map[string][]int{}
	var names []string
	for _, idx := range s.order {
		name := s.pool.packages[idx].Name
		if _, ok := byName[name]; !ok {
			names = append(names, name)
		}
		byName[name] = append(byName[name], idx)
	}
	totalWeight := 0
	for _, name := range names {
		ids := byName[name]
		sort.Slice(ids, func(i, j int) bool {
			return s.cache.comparePackages(s.pool.packages[ids[i]], s.pool.packages[ids[j]]) < 0
		})
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				clauses = append(clauses, []int{-s.varOf[ids[i]], -s.varOf[ids[j]]})
			}
		}
		// Every selected package costs one; older versions cost more.
		for rank, idx := range ids {
			weight := 1 + len(ids) - 1 - rank
			s.costLits = append(s.costLits, solver.IntToLit(int32(s.varOf[idx]))) //nolint:gosec // bounded by pool size
			s.costWeights = append(s.costWeights, weight)
			totalWeight += weight
		}
	}

	for i, goal := range goals {
		clause := make([]int, 0, len(goal.candidates)+1)
		for _, idx := range goal.candidates {
			clause = append(clause, s.varOf[idx])
		}
		if skipBroken {
			s.varID++
			s.skipVars[i] = s.varID
			clause = append(clause, s.varID)
		}
		clauses = append(clauses, uniqueInts(clause))
	}
	if skipBroken {
		for i := range goals {
			id := s.skipVars[i]
			s.costLits = append(s.costLits, solver.IntToLit(int32(id))) //nolint:gosec // bounded by goal count
			s.costWeights = append(s.costWeights, totalWeight+1)
		}
	}

	for _, idx := range s.order {
		id := s.varOf[idx]
		pkg := s.pool.packages[idx]
		clauses = append(clauses, requireClauses(s, idx, id, pkg)...)
		clauses = append(clauses, exclusionClauses(s, idx, id, pkg)...)
	}
	return clauses
}

func requireClauses(s *rpmSolverState, idx int, id int, pkg types.Package) [][]int {
	var clauses [][]int
	for _, req := range pkg.Requires {
		if ignorableRequire(req) {
			continue
		}
		providers := s.pool.whatProvides(req, s.cache)
		clause := []int{-id}
		self := false
		for _, provider := range providers {
			if provider == idx {
				self = true
				break
			}
			clause = append(clause, s.varOf[provider])
		}
		if self {
			continue
		}
		clauses = append(clauses, uniqueInts(clause))
	}
	return clauses
}

func exclusionClauses(s *rpmSolverState, idx int, id int, pkg types.Package) [][]int {
	var clauses [][]int
	for _, conflict := range pkg.Conflicts {
		for _, other := range s.pool.whatProvides(conflict, s.cache) {
			otherID, ok := s.varOf[other]
			if !ok || other == idx {
				continue
			}
			clauses = append(clauses, []int{-id, -otherID})
		}
	}
	for _, obsolete := range pkg.Obsoletes {
		for _, other := range s.pool.byName[obsolete.Name] {
			otherID, ok := s.varOf[other]
			if !ok || s.pool.packages[other].Name == pkg.Name {
				continue
			}
			if !s.cache.packageSatisfies(obsolete, s.pool.packages[other]) {
				continue
			}
			clauses = append(clauses, []int{-id, -otherID})
		}
	}
	return clauses
}

// minimize feeds the clauses to gophersat's optimization solver. A nil
// model means the problem is unsatisfiable.
func minimize(ctx context.Context, s *rpmSolverState, clauses [][]int) ([]bool, error) {
	problem := solver.ParseSliceNb(clauses, s.varID)
	problem.SetCostFunc(s.costLits, s.costWeights)
	sat := solver.New(problem)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if cost := sat.Minimize(); cost < 0 {
		return nil, nil
	}
	return sat.Model(), nil
}

// explainUnsatisfiable names, for each goal whose candidates are all
// broken, the requirements nothing in the pool provides.
func explainUnsatisfiable(p *pool, goals []installGoal, cache *evrCache) string {
	var lines []string
	for _, goal := range goals {
		var goalLines []string
		broken := 0
		for _, idx := range goal.candidates {
			pkg := p.packages[idx]
			missing := missingRequires(p, pkg, cache)
			if len(missing) == 0 {
				continue
			}
			broken++
			for _, req := range missing {
				goalLines = append(goalLines, fmt.Sprintf("nothing provides %s needed by %s", formatCapability(req), pkg.NEVRA()))
			}
		}
		if broken == len(goal.candidates) {
			lines = append(lines, goalLines...)
		}
		if len(lines) >= maxExplanations {
			lines = lines[:maxExplanations]
			break
		}
	}
	if len(lines) == 0 {
		requests := make([]string, 0, len(goals))
		for _, goal := range goals {
			requests = append(requests, goal.request)
		}
		return "conflicting requests: " + strings.Join(uniqueStrings(requests), ", ")
	}
	return strings.Join(lines, "; ")
}

func missingRequires(p *pool, pkg types.Package, cache *evrCache) []types.Capability {
	var out []types.Capability
	for _, req := range pkg.Requires {
		if ignorableRequire(req) {
			continue
		}
		if len(p.whatProvides(req, cache)) == 0 {
			out = append(out, req)
		}
	}
	return out
}

// ignorableRequire skips rpmlib() features and rich (boolean)
// dependencies, which the installing rpm handles itself.
func ignorableRequire(req types.Capability) bool {
	return strings.HasPrefix(req.Name, "rpmlib(") || strings.HasPrefix(req.Name, "(")
}

func formatCapability(c types.Capability) string {
	if !c.Versioned() {
		return c.Name
	}
	ops := map[types.CapabilityFlag]string{
		types.CapabilityFlagEQ: "=",
		types.CapabilityFlagLT: "<",
		types.CapabilityFlagLE: "<=",
		types.CapabilityFlagGT: ">",
		types.CapabilityFlagGE: ">=",
	}
	evr := c.Version
	if c.Epoch != "" && c.Epoch != "0" {
		evr = c.Epoch + ":" + evr
	}
	if c.Release != "" {
		evr += "-" + c.Release
	}
	return fmt.Sprintf("%s %s %s", c.Name, ops[c.Flags], evr)
}

// uniqueInts deduplicates a slice of ints while preserving order.
func uniqueInts(values []int) []int {
	seen := map[int]struct{}{}
	out := make([]int, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func uniqueStrings(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
