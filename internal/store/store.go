// Package store implements the Store Engine (spec §4.5): a periodic
// task that composes a shard directory into one Batch and uploads it
// through an embedded Stream, synchronously, exactly once per tick.
package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"ingestor/internal/batch"
	"ingestor/internal/coerce"
	"ingestor/internal/dtypes"
	"ingestor/internal/shardstore"
	"ingestor/internal/stream"
)

// Spec describes one Store as declared on a CollectorSpec (spec §3).
type Spec struct {
	Name                 string
	Period               time.Duration
	Path                 string // shard directory to compose
	Format               shardstore.Format
	DropDuplicateExclude []string // nil => dedup over every column
	MoveShardsPath       string   // "" => delete consumed shards
	MoveComposedPath     string   // "" => do not additionally persist the composed shard
	Sink                 stream.Sink
}

// Store drains Spec.Path into Spec.Sink on every tick. Unlike Stream,
// it never runs a consumer loop: its embedded Stream exists only to
// reuse Stream's retry/spillover/check-failures machinery, called
// synchronously from Tick.
type Store struct {
	collector string
	spec      Spec
	dtypePath string
	embedded  *stream.Stream
}

// New builds a Store. storeRoot is the same on-disk base every Stream
// in the collector shares (spillover directories live under it), and
// cacheDir is where this collector's DTypes record is looked up.
func New(collector string, spec Spec, storeRoot, cacheDir string) *Store {
	s := &Store{
		collector: collector,
		spec:      spec,
		dtypePath: dtypes.Path(cacheDir, collector),
	}
	embedded := stream.New(collector, spec.Sink, storeRoot, nil)
	embedded.NoConsumerLoop = true
	embedded.SetRecover(func(ctx context.Context, b *batch.Batch) {
		embedded.Upload(ctx, b)
	})
	s.embedded = embedded
	return s
}

// Tick runs one compose-cast-dedup-upload cycle. It never blocks the
// caller beyond the compose I/O and the embedded upload itself; the
// Collector Runtime is expected to spawn this as its own task so a
// slow sink does not stall the scheduler (spec §4.6 store_tick).
func (s *Store) Tick(ctx context.Context) {
	log := logrus.WithFields(logrus.Fields{"store": s.spec.Name, "collector": s.collector})

	rec, err := dtypes.Load(s.dtypePath)
	if err != nil {
		log.WithError(err).Debug("store: dtypes record not yet written, skipping tick")
		return
	}
	s.embedded.DTypes = rec

	combined, err := shardstore.ComposeDirectory(s.spec.Path, s.spec.Format, rec, s.spec.MoveShardsPath, s.spec.MoveComposedPath)
	if err != nil {
		log.WithError(err).Warn("store: compose_directory failed")
		return
	}
	if combined.Empty() {
		log.Warn("store: nothing to compose this tick")
		return
	}

	cast, err := combined.Cast(rec, coerce.Cast)
	if err != nil {
		log.WithError(err).Warn("store: cast to dtypes failed")
		return
	}

	// keepLast=false matches store.py's drop_duplicates(subset=...),
	// which relies on pandas' default keep="first".
	deduped, err := cast.DropDuplicates(dedupSubset(cast, s.spec.DropDuplicateExclude), false)
	if err != nil {
		log.WithError(err).Warn("store: drop_duplicates failed")
		return
	}

	s.embedded.Upload(ctx, deduped)
}

// dedupSubset resolves drop_duplicate_exclude to the concrete column
// subset drop_duplicates() should compare: every column in b except
// the excluded ones, or nil (meaning "all columns") when exclude is
// empty.
func dedupSubset(b *batch.Batch, exclude []string) []string {
	if len(exclude) == 0 {
		return nil
	}
	excluded := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		excluded[k] = true
	}
	var subset []string
	for _, name := range b.ColumnNames() {
		if !excluded[name] {
			subset = append(subset, name)
		}
	}
	return subset
}
