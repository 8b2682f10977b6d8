package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pkglist/internal/core"
)

// List prints the distinct package names the template installs.
func (s Service) List(ctx context.Context, req ListRequest) (ListResult, error) {
	template := strings.TrimSpace(req.Template)
	if template == "" {
		return ListResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("template path is required")
	}
	requests, err := s.Templates.PackageNames(template)
	if err != nil {
		return ListResult{}, err
	}
	packages := core.PackageNames(requests)
	out := s.out()
	for _, name := range packages {
		_, _ = fmt.Fprintln(out, name)
	}
	log.Ctx(ctx).Debug().
		Str("template", template).
		Int("requests", len(requests)).
		Int("packages", len(packages)).
		Msg("listed template packages")
	return ListResult{Packages: packages}, nil
}
