package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFileAppends(t *testing.T) {
	logsDir := filepath.Join(t.TempDir(), "logs")
	adapter := NewLogFileAdapter()

	for _, line := range []string{"first\n", "second\n"} {
		writer, err := adapter.Open(logsDir)
		require.NoError(t, err)
		_, err = writer.Write([]byte(line))
		require.NoError(t, err)
		require.NoError(t, writer.Close())
	}

	data, err := os.ReadFile(filepath.Join(logsDir, "pkglist.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}
