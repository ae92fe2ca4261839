package dtypes

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingestor/internal/batch"
)

func TestStoreLoadRoundTrip(t *testing.T) {
	path := Path(t.TempDir(), "securities")
	assert.False(t, Exists(path))

	rec := map[string]batch.Kind{"id": batch.Int, "lat": batch.Float}
	require.NoError(t, Store(path, rec))
	assert.True(t, Exists(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestPathMatchesCacheConvention(t *testing.T) {
	assert.Equal(t, filepath.Join("CACHE", "securities_dtypes.bin"), Path("CACHE", "securities"))
}
