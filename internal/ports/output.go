package ports

import (
	"io"

	"pkglist/internal/types"
)

type TransactionWriterPort interface {
	Write(path string, entries []types.TransactionEntry) error
}

type LogSinkPort interface {
	Open(logsDir string) (io.WriteCloser, error)
}
