package stream

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingestor/internal/batch"
	"ingestor/internal/shardstore"
)

func rowBatch(t *testing.T, id int64, tag string) *batch.Batch {
	t.Helper()
	b := batch.New()
	require.NoError(t, b.AddColumn("id", batch.Int, []batch.Value{batch.IntValue(id)}))
	require.NoError(t, b.AddColumn("tag", batch.String, []batch.Value{batch.StringValue(tag)}))
	return b
}

func TestLocalShardDedupsWithinBatchKeepingFirst(t *testing.T) {
	dir := t.TempDir()
	l := &Local{Mode: LocalShard, Format: shardstore.JSON, Path: dir, DropDuplicateKeys: []string{"id"}}

	first := rowBatch(t, 1, "first")
	dup, err := batch.Concat(first, rowBatch(t, 1, "second"))
	require.NoError(t, err)

	require.NoError(t, l.Upload(context.Background(), dup, nil))

	got, err := shardstore.ComposeDirectory(dir, shardstore.JSON, nil, "", "")
	require.NoError(t, err)
	require.Equal(t, 1, got.NumRows())
	assert.Equal(t, "first", got.Column("tag").Values[0].S)
}

func TestLocalUpdateExistingRowBeatsIncomingOnKeyCollision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.json")
	l := &Local{Mode: LocalUpdate, Format: shardstore.JSON, Path: path, DropDuplicateKeys: []string{"id"}}

	require.NoError(t, l.Upload(context.Background(), rowBatch(t, 1, "existing"), nil))
	require.NoError(t, l.Upload(context.Background(), rowBatch(t, 1, "incoming"), nil))

	got := shardstore.Load(path, shardstore.JSON, nil)
	require.Equal(t, 1, got.NumRows())
	assert.Equal(t, "existing", got.Column("tag").Values[0].S,
		"stream_update's df.append(data).drop_duplicates() keeps the pre-existing row on a key collision, not the new one")
}

func TestLocalUpdateAppendsNonCollidingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.json")
	l := &Local{Mode: LocalUpdate, Format: shardstore.JSON, Path: path, DropDuplicateKeys: []string{"id"}}

	require.NoError(t, l.Upload(context.Background(), rowBatch(t, 1, "a"), nil))
	require.NoError(t, l.Upload(context.Background(), rowBatch(t, 2, "b"), nil))

	got := shardstore.Load(path, shardstore.JSON, nil)
	assert.Equal(t, 2, got.NumRows())
}

func TestLocalReplaceDedupsWithinBatchKeepingFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.json")
	l := &Local{Mode: LocalReplace, Format: shardstore.JSON, Path: path, DropDuplicateKeys: []string{"id"}}

	require.NoError(t, l.Upload(context.Background(), rowBatch(t, 1, "stale"), nil))

	dup, err := batch.Concat(rowBatch(t, 2, "fresh-first"), rowBatch(t, 2, "fresh-second"))
	require.NoError(t, err)
	require.NoError(t, l.Upload(context.Background(), dup, nil))

	got := shardstore.Load(path, shardstore.JSON, nil)
	require.Equal(t, 1, got.NumRows(), "replace mode discards the previous file entirely")
	assert.Equal(t, "fresh-first", got.Column("tag").Values[0].S)
}
