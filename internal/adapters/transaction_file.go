package adapters

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"pkglist/internal/ports"
	"pkglist/internal/types"
)

// TransactionFileAdapter writes the resolved transaction as a YAML lock.
type TransactionFileAdapter struct{}

func NewTransactionFileAdapter() TransactionFileAdapter {
	return TransactionFileAdapter{}
}

var _ ports.TransactionWriterPort = TransactionFileAdapter{}

func (a TransactionFileAdapter) Write(path string, entries []types.TransactionEntry) error {
	ordered := append([]types.TransactionEntry(nil), entries...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Name != ordered[j].Name {
			return ordered[i].Name < ordered[j].Name
		}
		return ordered[i].String() < ordered[j].String()
	})
	data, err := yaml.Marshal(types.TransactionFile{Packages: ordered})
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode transaction").
			WithCause(err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create output directory").
				WithCause(err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write transaction file").
			WithCause(err)
	}
	return nil
}

// ReadTransactionFile loads a lock written by TransactionFileAdapter.
func ReadTransactionFile(path string) (types.TransactionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.TransactionFile{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("failed to read transaction file").
			WithCause(err)
	}
	var file types.TransactionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return types.TransactionFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse transaction file").
			WithCause(err)
	}
	return file, nil
}
