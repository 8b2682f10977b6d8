package types

// RepositorySource is a classified --source argument. Exactly one of URL
// or Path is meaningful, depending on Kind.
type RepositorySource struct {
	Kind     SourceKind
	URL      string
	Path     string
	Original string
}

func BareURL(url string, original string) RepositorySource {
	return RepositorySource{Kind: SourceBareURL, URL: url, Original: original}
}

func RepoFile(path string) RepositorySource {
	return RepositorySource{Kind: SourceRepoFile, Path: path, Original: path}
}

func Rejected(original string) RepositorySource {
	return RepositorySource{Kind: SourceRejected, Original: original}
}

type Repository struct {
	ID                string
	Name              string
	BaseURLs          []string
	MirrorList        string
	Metalink          string
	Enabled           bool
	SkipIfUnavailable bool
	Proxy             string
	Excludes          []string
	Origin            RepositoryOrigin
}

// Location returns the first configured location of the repository, used
// for srpm filtering and progress output.
func (r Repository) Location() string {
	if len(r.BaseURLs) > 0 {
		return r.BaseURLs[0]
	}
	if r.MirrorList != "" {
		return r.MirrorList
	}
	return r.Metalink
}

// RepoMetadata is everything loaded from one repository's repodata.
type RepoMetadata struct {
	RepoID   string
	Revision string
	Packages []Package
	Groups   []Group
}
