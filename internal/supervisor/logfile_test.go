package supervisor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()
	log, closer, err := collectorLogger(dir, "widgets")
	require.NoError(t, err)
	defer closer.Close()

	log.Info("hello from widgets")

	raw, err := os.ReadFile(filepath.Join(dir, "widgets.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "hello from widgets")
}

func TestCollectorLoggerAppendsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	log1, closer1, err := collectorLogger(dir, "widgets")
	require.NoError(t, err)
	log1.Info("first line")
	closer1.Close()

	log2, closer2, err := collectorLogger(dir, "widgets")
	require.NoError(t, err)
	defer closer2.Close()
	log2.Info("second line")

	raw, err := os.ReadFile(filepath.Join(dir, "widgets.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "first line")
	assert.Contains(t, string(raw), "second line")
}
