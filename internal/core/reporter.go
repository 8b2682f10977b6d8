package core

import (
	"iter"
	"sort"

	"pkglist/internal/types"
)

type Reporter struct{}

func NewReporter() Reporter {
	return Reporter{}
}

// Report yields one line per transaction entry, ordered by package name
// with ties broken by the full identifier. Verbose lines carry the
// originating repository. The outcome is not modified.
func (Reporter) Report(outcome types.ResolutionOutcome, verbose bool) iter.Seq[string] {
	entries := append([]types.TransactionEntry(nil), outcome.Entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].String() < entries[j].String()
	})
	return func(yield func(string) bool) {
		for _, entry := range entries {
			line := entry.String()
			if verbose {
				line += " (" + entry.RepoID + ")"
			}
			if !yield(line) {
				return
			}
		}
	}
}

// PackageNames returns the distinct seed names in ascending order, the
// output of list mode.
func PackageNames(requests []string) []string {
	out := uniqueStrings(requests)
	sort.Strings(out)
	return out
}
