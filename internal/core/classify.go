package core

import (
	"os"
	"strings"

	"pkglist/internal/types"
)

// supportedProtocols are the URL schemes passed through unchanged.
var supportedProtocols = []string{"http://", "https://", "ftp://", "file://"}

// Classify turns raw --source strings into repository sources. It never
// fails: anything it does not recognize becomes a Rejected source.
func Classify(raw []string, exists func(string) bool) []types.RepositorySource {
	if exists == nil {
		exists = fileExists
	}
	out := make([]types.RepositorySource, 0, len(raw))
	for _, value := range raw {
		out = append(out, classifyOne(value, exists))
	}
	return out
}

func classifyOne(value string, exists func(string) bool) types.RepositorySource {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "/") {
		return types.BareURL("file://"+trimmed, value)
	}
	for _, protocol := range supportedProtocols {
		if strings.HasPrefix(trimmed, protocol) {
			return types.BareURL(trimmed, value)
		}
	}
	if strings.HasSuffix(trimmed, ".repo") && exists(trimmed) {
		return types.RepoFile(trimmed)
	}
	return types.Rejected(value)
}

// IsSourceRepository reports whether a location points at a source
// package (srpm) repository.
func IsSourceRepository(location string) bool {
	return strings.Contains(strings.ToLower(location), "srpm")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
