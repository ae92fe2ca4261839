package stream

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"ingestor/internal/batch"
	"ingestor/internal/shardstore"
)

// LocalMode selects Stream2Local's on-disk write semantics.
type LocalMode int

const (
	LocalShard LocalMode = iota
	LocalUpdate
	LocalReplace
)

// Local is Stream2Local (spec §4.4): writes batches straight to a
// shard directory, optionally deduplicating. shard mode is what feeds
// the Store Engine's later compose_directory pass.
type Local struct {
	Mode               LocalMode
	Format             shardstore.Format
	Path               string
	DropDuplicateKeys  []string

	mu sync.Mutex
}

func (l *Local) Kind() string {
	switch l.Mode {
	case LocalUpdate:
		return fmt.Sprintf("local.update.%s", l.Format)
	case LocalReplace:
		return fmt.Sprintf("local.replace.%s", l.Format)
	default:
		return fmt.Sprintf("local.shard.%s", l.Format)
	}
}

func (l *Local) Invalidate() {} // no remote connection to invalidate

// Upload dedups with keepLast=false (keep the first occurrence) in
// every mode, matching stream2local.py's pandas default
// drop_duplicates(subset=...) — keep="first" — used identically in
// stream_shard, stream_update and stream_replace. In update mode this
// also means a pre-existing row beats an incoming one on a key
// collision: stream_update does `df.append(data).drop_duplicates()`,
// and since df (existing) is appended before data (incoming) and
// keep="first" wins ties by position, the existing row survives, not
// the new one.
func (l *Local) Upload(_ context.Context, b *batch.Batch, _ map[string]batch.Kind) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	deduped, err := b.DropDuplicates(l.DropDuplicateKeys, false)
	if err != nil {
		return fmt.Errorf("stream2local: dedup: %w", err)
	}

	switch l.Mode {
	case LocalShard:
		name := shardstore.ShardName(time.Now().UnixMilli(), l.Format)
		return shardstore.Store(deduped, filepath.Join(l.Path, name), l.Format)
	case LocalUpdate:
		existing := shardstore.Load(l.Path, l.Format, nil)
		combined, err := batch.Concat(existing, deduped)
		if err != nil {
			return fmt.Errorf("stream2local: update concat: %w", err)
		}
		combined, err = combined.DropDuplicates(l.DropDuplicateKeys, false)
		if err != nil {
			return fmt.Errorf("stream2local: update dedup: %w", err)
		}
		return shardstore.Store(combined, l.Path, l.Format)
	case LocalReplace:
		return shardstore.Store(deduped, l.Path, l.Format)
	}
	return fmt.Errorf("stream2local: unknown mode %v", l.Mode)
}
