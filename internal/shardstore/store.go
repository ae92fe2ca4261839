package shardstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"ingestor/internal/batch"
)

// ShardName returns the epoch-millisecond shard file name spec §6
// declares ("<epoch_ms>.<ext>").
func ShardName(epochMs int64, format Format) string {
	return strconv.FormatInt(epochMs, 10) + "." + format.Ext()
}

// Store writes b to path atomically: encode to a sibling temp file,
// then rename over the destination. Parent directories are created as
// needed, matching file_converter.py's to_<fmt> helpers which always
// mkdir -p the shard directory before writing.
func Store(b *batch.Batch, path string, format Format) error {
	codec := codecFor(format)
	if codec == nil {
		return fmt.Errorf("shardstore: no codec for format %v", format)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("shardstore: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".shard-*.tmp")
	if err != nil {
		return fmt.Errorf("shardstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := codec.Encode(tmp, b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("shardstore: encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("shardstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("shardstore: rename into place %s: %w", path, err)
	}
	return nil
}

// Load reads one shard. Per spec §4.3 it never surfaces an I/O or
// decode error to the caller — any failure logs a warning and returns
// an empty Batch, since a single corrupt/missing shard must not abort
// a directory compose.
func Load(path string, format Format, dtypes map[string]batch.Kind) *batch.Batch {
	codec := codecFor(format)
	if codec == nil {
		logrus.WithField("format", format).Warn("shardstore: unknown format, returning empty batch")
		return batch.New()
	}
	f, err := os.Open(path)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Warn("shardstore: load failed, returning empty batch")
		return batch.New()
	}
	defer f.Close()
	b, err := codec.Decode(f, dtypes)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Warn("shardstore: decode failed, returning empty batch")
		return batch.New()
	}
	return b
}

// ComposeDirectory loads every shard file of format in dir, concatenates
// them, and returns the combined Batch. A missing directory composes to
// an empty Batch, not an error — a collector's first run has no shard
// directory yet. If moveShards is non-empty, every listed shard file,
// including one that failed to load, is relocated there after compose
// (spec's move_shards); if it is empty, they are deleted instead. If
// composed is non-empty, the combined Batch is additionally stored
// under composed using the "<firstStem>_<lastStem>.<ext>" convention
// (or "<stem>_None.<ext>" for a single shard), matching
// file_converter.py's compose naming.
func ComposeDirectory(dir string, format Format, dtypes map[string]batch.Kind, moveShards, composed string) (*batch.Batch, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return batch.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("shardstore: read dir %s: %w", dir, err)
	}

	ext := "." + format.Ext()
	var stems []string
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, e.Name())
		stems = append(stems, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(names)
	sort.Strings(stems)

	if len(names) == 0 {
		return batch.New(), nil
	}

	batches := make([]*batch.Batch, len(names))
	for i, name := range names {
		batches[i] = Load(filepath.Join(dir, name), format, dtypes)
	}
	combined, err := batch.Concat(batches...)
	if err != nil {
		return nil, fmt.Errorf("shardstore: concat shards in %s: %w", dir, err)
	}

	if moveShards != "" {
		if err := os.MkdirAll(moveShards, 0o755); err != nil {
			return nil, fmt.Errorf("shardstore: mkdir %s: %w", moveShards, err)
		}
		for _, name := range names {
			src := filepath.Join(dir, name)
			dst := filepath.Join(moveShards, name)
			if err := os.Rename(src, dst); err != nil {
				logrus.WithError(err).WithField("path", src).Warn("shardstore: failed to move shard after compose")
			}
		}
	} else {
		// No destination given: the consumed shards are deleted rather
		// than left to be recomposed again on the next call (spec §4.3).
		for _, name := range names {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				logrus.WithError(err).WithField("path", name).Warn("shardstore: failed to remove shard after compose")
			}
		}
	}

	if composed != "" {
		last := "None"
		if len(stems) > 1 {
			last = stems[len(stems)-1]
		}
		name := fmt.Sprintf("%s_%s%s", stems[0], last, ext)
		if err := Store(combined, filepath.Join(composed, name), format); err != nil {
			return nil, fmt.Errorf("shardstore: store composed shard: %w", err)
		}
	}

	return combined, nil
}
