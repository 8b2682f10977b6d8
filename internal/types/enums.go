package types

type SourceKind string

const (
	SourceBareURL  SourceKind = "bare-url"
	SourceRepoFile SourceKind = "repo-file"
	SourceRejected SourceKind = "rejected"
)

type RepositoryOrigin string

const (
	RepositoryOriginURL  RepositoryOrigin = "url"
	RepositoryOriginFile RepositoryOrigin = "repo-file"
)

// CapabilityFlag is the comparison operator carried by an rpm dependency
// entry, spelled the way repodata primary.xml spells it.
type CapabilityFlag string

const (
	CapabilityFlagNone CapabilityFlag = ""
	CapabilityFlagEQ   CapabilityFlag = "EQ"
	CapabilityFlagLT   CapabilityFlag = "LT"
	CapabilityFlagLE   CapabilityFlag = "LE"
	CapabilityFlagGT   CapabilityFlag = "GT"
	CapabilityFlagGE   CapabilityFlag = "GE"
)

type GroupPackageType string

const (
	GroupPackageMandatory   GroupPackageType = "mandatory"
	GroupPackageDefault     GroupPackageType = "default"
	GroupPackageOptional    GroupPackageType = "optional"
	GroupPackageConditional GroupPackageType = "conditional"
)
