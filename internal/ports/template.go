package ports

// TemplatePort extracts the seed package list from a template file.
type TemplatePort interface {
	PackageNames(path string) ([]string, error)
}
