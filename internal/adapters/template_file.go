package adapters

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pkglist/internal/ports"
)

// TemplateFileAdapter reads the seed package list from the installpkg
// commands of a lorax-style template.
type TemplateFileAdapter struct{}

func NewTemplateFileAdapter() TemplateFileAdapter {
	return TemplateFileAdapter{}
}

var _ ports.TemplatePort = TemplateFileAdapter{}

func (a TemplateFileAdapter) PackageNames(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		code := errbuilder.CodeInternal
		if os.IsNotExist(err) {
			code = errbuilder.CodeNotFound
		}
		return nil, errbuilder.New().
			WithCode(code).
			WithMsg(fmt.Sprintf("failed to read template %s", path)).
			WithCause(err)
	}
	defer file.Close()

	var names []string
	var pending string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// Mako joins lines ending in a backslash.
		if strings.HasSuffix(line, "\\") {
			pending += strings.TrimSuffix(line, "\\") + " "
			continue
		}
		line = pending + line
		pending = ""
		names = append(names, installPackages(line)...)
	}
	if pending != "" {
		names = append(names, installPackages(pending)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read template %s", path)).
			WithCause(err)
	}
	return names, nil
}

func installPackages(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || isTemplateControl(trimmed) {
		return nil
	}
	fields := strings.Fields(trimmed)
	if fields[0] != "installpkg" {
		return nil
	}
	var names []string
	for i := 1; i < len(fields); i++ {
		token := fields[i]
		switch {
		case strings.HasPrefix(token, "#"):
			return names
		case token == "--except":
			i++
		case strings.HasPrefix(token, "--"):
		case strings.Contains(token, "${"):
		default:
			names = append(names, token)
		}
	}
	return names
}

func isTemplateControl(line string) bool {
	return strings.HasPrefix(line, "%") ||
		strings.HasPrefix(line, "<%") ||
		strings.HasPrefix(line, "#")
}
