package nortek

import (
	"go/format"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcesAreGofmtClean(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)
	for _, name := range files {
		src, err := os.ReadFile(name)
		require.NoError(t, err)
		got, err := format.Source(src)
		require.NoError(t, err, name)
		assert.Equal(t, string(src), string(got), "%s is not gofmt-clean", name)
	}
}
