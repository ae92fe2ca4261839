package stream

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"ingestor/internal/batch"
	"ingestor/internal/coerce"
	"ingestor/internal/retry"
	"ingestor/internal/shardstore"
)

// State is the Stream consumer's lifecycle state (spec §4.4).
type State int

const (
	Starting State = iota
	Running
	Draining
	Exiting
)

func (s State) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Draining:
		return "Draining"
	case Exiting:
		return "Exiting"
	}
	return "Unknown"
}

const idleSleep = time.Second

// Stream is the runtime wrapper shared by every sink variant: an
// unbounded FIFO queue, a cancellable liveness context, capped-backoff
// retry with local spillover, and failed-batch recovery on the next
// success. A Stream instance is single-use: once its consumer loop
// exits, construct a new one for the next run (spec §4.4).
type Stream struct {
	Collector  string
	Sink       Sink
	FailureDir string
	DTypes     map[string]batch.Kind

	// recover is invoked with a batch recomposed from the failure
	// directory after a successful upload. The default re-enqueues it
	// (ordinary Stream behavior); Store's embedded Stream overrides this
	// via SetRecover to upload it directly instead, since a Store has no
	// consumer loop to re-drain a queue.
	recover func(ctx context.Context, b *batch.Batch)

	// NoConsumerLoop marks a Stream as Store-owned: Start panics rather
	// than spawning a background consumer, since a Store drains its
	// embedded Stream synchronously on its own tick (spec §4.5).
	NoConsumerLoop bool

	mu    sync.Mutex
	queue []*batch.Batch

	state  atomic.Int32
	alive  atomic.Bool
	done   chan struct{}
	cancel context.CancelFunc
}

// New builds a Stream for sink, failing over to
// <storeRoot>/upload_failed/<collector>/<sink.Kind()>/ on retry
// exhaustion.
func New(collector string, sink Sink, storeRoot string, dtypes map[string]batch.Kind) *Stream {
	s := &Stream{
		Collector:  collector,
		Sink:       sink,
		FailureDir: filepath.Join(storeRoot, "upload_failed", collector, sink.Kind()),
		DTypes:     dtypes,
		done:       make(chan struct{}),
	}
	s.recover = s.Enqueue
	return s
}

// SetRecover overrides the failed-batch recovery callback. Used by
// Store to upload a recomposed failure directly instead of re-enqueuing
// it, since Store never runs a consumer loop to drain a queue.
func (s *Stream) SetRecover(fn func(ctx context.Context, b *batch.Batch)) {
	s.recover = fn
}

// Enqueue appends b to the inbound queue. Safe for concurrent callers;
// owned by exactly one consumer (spec §3 invariant).
func (s *Stream) Enqueue(ctx context.Context, b *batch.Batch) {
	s.mu.Lock()
	s.queue = append(s.queue, b)
	s.mu.Unlock()
}

func (s *Stream) dequeue() *batch.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	b := s.queue[0]
	s.queue = s.queue[1:]
	return b
}

// State reports the Stream consumer's current lifecycle state.
func (s *Stream) State() State { return State(s.state.Load()) }

// Alive reports whether the consumer loop is currently running. A
// consumer loop that ends on a panic (recovered in run) clears this
// without anyone having cancelled it and without reaching Exiting —
// Runtime's liveness probe treats that as StreamDied (spec §7) and
// triggers a coordinated restart of every Stream in the collector.
func (s *Stream) Alive() bool { return s.alive.Load() }

// Done closes when the consumer loop has returned, for any reason.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Start spawns the consumer loop. ctx is the liveness token: cancelling
// it (supervisor-initiated restart) transitions Running -> Draining ->
// Exiting once the queue empties.
func (s *Stream) Start(ctx context.Context) {
	if s.NoConsumerLoop {
		panic("stream: Start called on a Store-owned Stream, which must not run a consumer loop")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state.Store(int32(Starting))
	s.alive.Store(true)
	go s.run(ctx)
}

// Stop requests a clean exit: equivalent to the supervisor releasing
// the liveness lock in the source's design.
func (s *Stream) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Stream) run(ctx context.Context) {
	defer func() {
		s.alive.Store(false)
		if p := recover(); p != nil {
			// State stays Running/Draining, so Runtime's probe sees a
			// dead Stream rather than a clean exit.
			logrus.WithFields(logrus.Fields{"collector": s.Collector, "sink": s.Sink.Kind()}).Errorf("stream: consumer loop panicked: %v", p)
			close(s.done)
			return
		}
		s.state.Store(int32(Exiting))
		close(s.done)
	}()

	s.state.Store(int32(Running))
	for {
		select {
		case <-ctx.Done():
			s.state.Store(int32(Draining))
			s.drain(context.Background())
			return
		default:
		}

		b := s.dequeue()
		if b == nil {
			time.Sleep(idleSleep)
			continue
		}
		s.Upload(ctx, b)
	}
}

// drain flushes whatever remains in the queue synchronously before
// exiting, so a supervisor-initiated restart never loses messages
// enqueued before the cancel (spec §8 boundary behavior).
func (s *Stream) drain(ctx context.Context) {
	for {
		b := s.dequeue()
		if b == nil {
			return
		}
		s.Upload(ctx, b)
	}
}

// Upload retries Sink.Upload with capped exponential backoff up to
// retry.MaxAttempts, invalidating the connection between attempts. On
// exhaustion it spills the batch to FailureDir as parquet. On success
// it drains FailureDir back through recover.
func (s *Stream) Upload(ctx context.Context, b *batch.Batch) {
	err := retry.Do(ctx, func(attempt int) error {
		return s.Sink.Upload(ctx, b, s.DTypes)
	}, func(attempt int, err error) {
		s.Sink.Invalidate()
	}, nil)

	if err != nil {
		s.spill(b, err)
		return
	}
	s.checkFailures(ctx)
}

func (s *Stream) spill(b *batch.Batch, cause error) {
	name := shardstore.ShardName(time.Now().UnixNano(), shardstore.Parquet)
	path := filepath.Join(s.FailureDir, name)
	logrus.WithFields(logrus.Fields{
		"collector": s.Collector,
		"sink":      s.Sink.Kind(),
		"path":      path,
	}).WithError(cause).Warn("stream: upload exhausted retries, spilling to disk")
	if err := shardstore.Store(b, path, shardstore.Parquet); err != nil {
		logrus.WithError(err).WithField("path", path).Error("stream: failed to spill batch, data lost")
	}
}

// checkFailures composes every spilled batch in FailureDir and hands
// the combined Batch back through recover, so a previously-failed
// upload is retried automatically the next time this Stream succeeds
// (spec §4.4, §8 "failure directory becomes empty").
func (s *Stream) checkFailures(ctx context.Context) {
	combined, err := shardstore.ComposeDirectory(s.FailureDir, shardstore.Parquet, s.DTypes, "", "")
	if err != nil {
		logrus.WithError(err).WithField("dir", s.FailureDir).Warn("stream: check_failures compose failed")
		return
	}
	if combined.Empty() {
		return
	}
	cast, err := combined.Cast(s.DTypes, coerce.Cast)
	if err != nil {
		logrus.WithError(err).WithField("dir", s.FailureDir).Warn("stream: check_failures cast failed")
		return
	}
	s.recover(ctx, cast)
}
