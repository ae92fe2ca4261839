// Package stream implements the Stream Engine (spec §4.4): the
// long-lived per-sink consumer that owns an inbound queue, retries
// transient upload failures with local spillover, and recovers
// previously-failed batches on the next successful upload.
//
// The source's liveness lock doubles as both "I am alive" and "please
// exit" (re-acquiring it from outside signals the consumer to stop).
// Per spec §9 Design Notes this is re-architected here as an explicit
// context.CancelFunc token: Runtime cancels a Stream's context to
// request exit, and the Stream exposes Alive() so Runtime can detect a
// consumer that died on its own (sink panic, unrecoverable state)
// without the lock-reacquisition pun.
package stream

import (
	"context"

	"ingestor/internal/batch"
)

// Sink is the upload primitive each Stream variant implements. Stream
// calls it at most once at a time (never concurrently) for a given
// Stream instance. Implementations lazily establish their remote
// connection/schema on first call and must treat Invalidate as "the
// current connection is suspect, reconnect before the next call."
type Sink interface {
	// Kind names this sink for failure-directory naming and schema
	// inference logging, e.g. "local.shard.parquet", "sql.postgresql".
	Kind() string
	// Upload pushes one Batch to the destination, creating remote
	// schema from dtypes on first call.
	Upload(ctx context.Context, b *batch.Batch, dtypes map[string]batch.Kind) error
	// Invalidate marks the current connection (if any) as unusable,
	// called by Stream between retries so the next Upload reconnects.
	Invalidate()
}
