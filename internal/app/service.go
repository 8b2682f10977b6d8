package app

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"pkglist/internal/adapters"
	"pkglist/internal/core"
	"pkglist/internal/ports"
)

type Service struct {
	Sandbox           ports.SandboxPort
	RepoFiles         ports.RepoFilePort
	Metadata          ports.MetadataPort
	Templates         ports.TemplatePort
	TransactionWriter ports.TransactionWriterPort
	LogSink           ports.LogSinkPort
	// NewResolver overrides the resolver built for each run; nil selects
	// the repodata resolver.
	NewResolver core.ResolverFactory
	Out         io.Writer
	LogConsole  io.Writer
}

func NewService() Service {
	return Service{
		Sandbox:           adapters.NewSandboxDirAdapter(),
		RepoFiles:         adapters.NewRepoFileAdapter(),
		Metadata:          adapters.NewRepoMetadataAdapter(),
		Templates:         adapters.NewTemplateFileAdapter(),
		TransactionWriter: adapters.NewTransactionFileAdapter(),
		LogSink:           adapters.NewLogFileAdapter(),
		Out:               os.Stdout,
		LogConsole:        zerolog.ConsoleWriter{Out: os.Stderr},
	}
}

func (s Service) out() io.Writer {
	if s.Out == nil {
		return io.Discard
	}
	return s.Out
}
