package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"pkglist/internal/types"
)

func TestClassify(t *testing.T) {
	existing := map[string]bool{
		"extra.repo":      true,
		"conf/extra.repo": true,
	}
	exists := func(path string) bool { return existing[path] }

	tests := []struct {
		name   string
		input  string
		expect types.RepositorySource
	}{
		{
			name:   "absolute path becomes file url",
			input:  "/srv/repo",
			expect: types.BareURL("file:///srv/repo", "/srv/repo"),
		},
		{
			name:   "absolute repo file path is still a bare url",
			input:  "/etc/yum.repos.d/extra.repo",
			expect: types.BareURL("file:///etc/yum.repos.d/extra.repo", "/etc/yum.repos.d/extra.repo"),
		},
		{
			name:   "http passes through",
			input:  "http://mirror.example/os",
			expect: types.BareURL("http://mirror.example/os", "http://mirror.example/os"),
		},
		{
			name:   "https passes through",
			input:  "https://mirror.example/os",
			expect: types.BareURL("https://mirror.example/os", "https://mirror.example/os"),
		},
		{
			name:   "ftp passes through",
			input:  "ftp://mirror.example/os",
			expect: types.BareURL("ftp://mirror.example/os", "ftp://mirror.example/os"),
		},
		{
			name:   "file url passes through",
			input:  "file:///srv/repo",
			expect: types.BareURL("file:///srv/repo", "file:///srv/repo"),
		},
		{
			name:   "existing relative repo file",
			input:  "conf/extra.repo",
			expect: types.RepoFile("conf/extra.repo"),
		},
		{
			name:   "missing repo file is rejected",
			input:  "missing.repo",
			expect: types.Rejected("missing.repo"),
		},
		{
			name:   "unsupported protocol is rejected",
			input:  "gopher://mirror.example/os",
			expect: types.Rejected("gopher://mirror.example/os"),
		},
		{
			name:   "relative directory is rejected",
			input:  "repos/os",
			expect: types.Rejected("repos/os"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify([]string{tt.input}, exists)
			if diff := cmp.Diff([]types.RepositorySource{tt.expect}, got); diff != "" {
				t.Fatalf("unexpected source (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassifyKeepsOrder(t *testing.T) {
	got := Classify([]string{"http://a", "bogus", "/b"}, func(string) bool { return false })
	kinds := make([]types.SourceKind, 0, len(got))
	for _, source := range got {
		kinds = append(kinds, source.Kind)
	}
	assert.Equal(t, []types.SourceKind{types.SourceBareURL, types.SourceRejected, types.SourceBareURL}, kinds)
}

func TestIsSourceRepository(t *testing.T) {
	assert.True(t, IsSourceRepository("http://mirror/SRPMS/"))
	assert.True(t, IsSourceRepository("file:///srv/srpm-repo"))
	assert.False(t, IsSourceRepository("http://mirror/os/x86_64/"))
}
