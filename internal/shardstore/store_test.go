package shardstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingestor/internal/batch"
)

func sampleBatch(t *testing.T) *batch.Batch {
	t.Helper()
	b := batch.New()
	require.NoError(t, b.AddColumn("id", batch.Int, []batch.Value{batch.IntValue(1), batch.NullValue(batch.Int)}))
	require.NoError(t, b.AddColumn("price", batch.Float, []batch.Value{batch.FloatValue(1.5), batch.FloatValue(2.25)}))
	require.NoError(t, b.AddColumn("active", batch.Bool, []batch.Value{batch.BoolValue(true), batch.BoolValue(false)}))
	require.NoError(t, b.AddColumn("name", batch.String, []batch.Value{batch.StringValue("aaa"), batch.NullValue(batch.String)}))
	require.NoError(t, b.AddColumn("seen", batch.DateTime, []batch.Value{
		batch.TimeValue(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
		batch.NullValue(batch.DateTime),
	}))
	return b
}

func TestStoreLoadRoundTripAllFormats(t *testing.T) {
	for _, format := range []Format{Parquet, JSON, CSV, Binary} {
		format := format
		t.Run(format.String(), func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "1700000000000."+format.Ext())
			b := sampleBatch(t)

			require.NoError(t, Store(b, path, format))
			got := Load(path, format, nil)

			assert.Equal(t, b.NumRows(), got.NumRows())
			assert.Equal(t, b.ColumnNames(), got.ColumnNames())
			assert.Equal(t, int64(1), got.Column("id").Values[0].I)
			assert.True(t, got.Column("id").Values[1].Null)
			assert.InDelta(t, 2.25, got.Column("price").Values[1].F, 1e-9)
			assert.True(t, got.Column("active").Values[0].B)
			assert.True(t, got.Column("name").Values[1].Null)
			assert.Equal(t, 2024, got.Column("seen").Values[0].T.Year())
		})
	}
}

func TestLoadMissingFileReturnsEmptyBatch(t *testing.T) {
	got := Load(filepath.Join(t.TempDir(), "missing.json"), JSON, nil)
	assert.True(t, got.Empty())
}

func TestComposeDirectoryMissingDirIsEmptyNotError(t *testing.T) {
	combined, err := ComposeDirectory(filepath.Join(t.TempDir(), "nope"), JSON, nil, "", "")
	require.NoError(t, err)
	assert.True(t, combined.Empty())
}

func TestComposeDirectoryConcatsAndMovesAndNamesComposed(t *testing.T) {
	dir := t.TempDir()
	moved := filepath.Join(dir, "moved")
	composed := filepath.Join(dir, "composed")

	b1 := batch.New()
	require.NoError(t, b1.AddColumn("id", batch.Int, []batch.Value{batch.IntValue(1)}))
	b2 := batch.New()
	require.NoError(t, b2.AddColumn("id", batch.Int, []batch.Value{batch.IntValue(2), batch.IntValue(3)}))

	require.NoError(t, Store(b1, filepath.Join(dir, "1000.json"), JSON))
	require.NoError(t, Store(b2, filepath.Join(dir, "2000.json"), JSON))

	combined, err := ComposeDirectory(dir, JSON, nil, moved, composed)
	require.NoError(t, err)
	assert.Equal(t, 3, combined.NumRows())

	entries, err := filepathGlob(moved, "*.json")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	composedEntries, err := filepathGlob(composed, "*.json")
	require.NoError(t, err)
	require.Len(t, composedEntries, 1)
	assert.Equal(t, "1000_2000.json", filepath.Base(composedEntries[0]))
}

func filepathGlob(dir, pattern string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, pattern))
}

func TestComposeDirectoryDeletesShardsWhenNoMoveDestination(t *testing.T) {
	dir := t.TempDir()
	b := batch.New()
	require.NoError(t, b.AddColumn("id", batch.Int, []batch.Value{batch.IntValue(1)}))
	require.NoError(t, Store(b, filepath.Join(dir, "1000.json"), JSON))

	combined, err := ComposeDirectory(dir, JSON, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, combined.NumRows())

	entries, err := filepathGlob(dir, "*.json")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
