package adapters

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"pkglist/internal/ports"
)

const logFileName = "pkglist.log"

type LogFileAdapter struct{}

func NewLogFileAdapter() LogFileAdapter {
	return LogFileAdapter{}
}

// Open appends to the run log inside the sandbox logs directory.
func (a LogFileAdapter) Open(logsDir string) (io.WriteCloser, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create log directory").
			WithCause(err)
	}
	file, err := os.OpenFile(filepath.Join(logsDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open log file").
			WithCause(err)
	}
	return file, nil
}

var _ ports.LogSinkPort = LogFileAdapter{}
