// Package runtime implements the Collector Runtime (spec §4.6): a
// per-collector supervisor that schedules collection and store ticks,
// instantiates Streams and Stores, detects a dead Stream, and triggers
// a coordinated restart of the whole collector. Grounded on
// jobs/schedule.go's JobScheduler: a 1-second (here; the teacher uses
// 1-minute) ticker driving mutex-guarded single-flight job execution,
// Redis-backed last-run bookkeeping, and "=== JOB START ===" banner
// logging — generalized from time-of-day schedules to period elapsed
// and from a fixed job list to one collector's Streams/Stores.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ingestor/internal/batch"
	"ingestor/internal/collector"
	"ingestor/internal/conn"
	"ingestor/internal/dtypes"
	"ingestor/internal/store"
	"ingestor/internal/stream"
)

const tickInterval = time.Second

// Runtime drives one collector's schedule for the lifetime of Run. Run
// calls schedule repeatedly: schedule returns (without error) whenever
// a Stream dies, and the outer loop re-invokes it — the coordinated
// restart mechanism spec §4.6 describes.
type Runtime struct {
	spec      *collector.Spec
	conn      *conn.Conn
	cacheDir  string
	storeRoot string

	dtypesPath string
	dtypesOnce sync.Once

	log *logrus.Logger
}

// New builds a Runtime for spec. cacheDir backs the collector's DTypes
// record; storeRoot is the on-disk base every local Stream/Store shares
// (spillover directories, default shard paths). Logging goes to the
// standard logrus logger until SetLogger redirects it — the Process
// Supervisor calls SetLogger with a per-collector file-backed logger
// before starting Run (spec §6's LOGS/<collector>.log contract).
func New(spec *collector.Spec, c *conn.Conn, cacheDir, storeRoot string) *Runtime {
	return &Runtime{
		spec:       spec,
		conn:       c,
		cacheDir:   cacheDir,
		storeRoot:  storeRoot,
		dtypesPath: dtypes.Path(cacheDir, spec.Name),
		log:        logrus.StandardLogger(),
	}
}

// SetLogger redirects this Runtime's log output. Passing nil restores
// the standard logrus logger.
func (r *Runtime) SetLogger(log *logrus.Logger) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r.log = log
}

// Run repeatedly calls schedule until ctx is cancelled. Each return
// from schedule without an error means a Stream died and the collector
// needs a full restart (spec §4.6 "outer supervisor loop detects the
// missing tag and reschedules from scratch").
func (r *Runtime) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.schedule(ctx); err != nil {
			return fmt.Errorf("runtime(%s): schedule: %w", r.spec.Name, err)
		}
	}
}

// schedule instantiates and starts all Streams and Stores, then drives
// the 1-second supervisor tick until either ctx is cancelled (clean
// shutdown) or a Stream is found dead (coordinated restart — schedule
// returns nil so Run calls it again from scratch).
func (r *Runtime) schedule(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	streams := make([]*stream.Stream, len(r.spec.Streams))
	for i, sink := range r.spec.Streams {
		s := stream.New(r.spec.Name, sink, r.storeRoot, nil)
		streams[i] = s
		s.Start(runCtx)
	}
	defer func() {
		for _, s := range streams {
			s.Stop()
		}
		for _, s := range streams {
			<-s.Done()
		}
	}()

	stores := make([]*store.Store, len(r.spec.Stores))
	for i, spec := range r.spec.Stores {
		stores[i] = store.New(r.spec.Name, spec, r.storeRoot, r.cacheDir)
	}

	r.log.WithField("collector", r.spec.Name).Infof("=== RUNTIME SCHEDULE: %s ===", r.spec.Name)

	var tasks errgroup.Group
	defer func() {
		_ = tasks.Wait()
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	collectKey := lastRunKey(r.spec.Name, "collect")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			dead := false
			for _, s := range streams {
				if s.State() != stream.Exiting && !s.Alive() {
					dead = true
					break
				}
			}
			if dead {
				r.log.WithField("collector", r.spec.Name).Warn("runtime: stream died, triggering coordinated restart")
				return nil
			}

			now := time.Now()
			if dueAndMark(ctx, r.conn.Cache, collectKey, r.spec.Period, now) {
				tasks.Go(func() error {
					r.collect(runCtx, streams)
					return nil
				})
			}

			for i, spec := range r.spec.Stores {
				if !dtypes.Exists(r.dtypesPath) {
					continue
				}
				tag := lastRunKey(r.spec.Name, "refresh."+spec.Name)
				if dueAndMark(ctx, r.conn.Cache, tag, spec.Period, now) {
					st := stores[i]
					tasks.Go(func() error {
						st.Tick(runCtx)
						return nil
					})
				}
			}
		}
	}
}

// collect runs one collect tick: build a fresh ApiForm, honor its
// MergeStatic dependency check, fetch upstream documents, run the
// pipeline per document, persist the DTypes record from the first
// successful Batch, and enqueue every Batch into every Stream (spec
// §4.6 collect worker).
func (r *Runtime) collect(ctx context.Context, streams []*stream.Stream) {
	log := r.log.WithFields(logrus.Fields{"collector": r.spec.Name, "tick_id": uuid.NewString()})

	form := r.spec.Form()
	if err := form.CheckDependencies(); err != nil {
		log.WithError(err).Warn("runtime: collect tick skipped, dependency check failed")
		return
	}

	docs, err := r.spec.Fetch(ctx)
	if err != nil {
		log.WithError(err).Warn("runtime: fetch failed")
		return
	}
	if len(docs) == 0 {
		return
	}

	for _, doc := range docs {
		b, err := form.Run(doc)
		if err != nil {
			log.WithError(err).Warn("runtime: apiform run failed")
			continue
		}
		if b.Empty() {
			continue
		}

		if r.spec.Debug && r.spec.DebugLimit > 0 {
			b = truncate(b, r.spec.DebugLimit)
		}

		r.persistDTypesOnce(b)

		for _, s := range streams {
			s.Enqueue(ctx, b)
		}
	}
}

// persistDTypesOnce writes the DTypes record from b's column types the
// first time this Runtime observes a non-empty Batch and no record
// exists yet on disk — spec §3's "written exactly once per collector."
// sync.Once bounds it to a single attempt per Runtime lifetime; the
// Exists check additionally protects against a record already written
// by a prior process run.
func (r *Runtime) persistDTypesOnce(b *batch.Batch) {
	r.dtypesOnce.Do(func() {
		if dtypes.Exists(r.dtypesPath) {
			return
		}
		if err := dtypes.Store(r.dtypesPath, b.DTypes()); err != nil {
			r.log.WithError(err).WithField("collector", r.spec.Name).Error("runtime: failed to persist dtypes record")
		}
	})
}

func truncate(b *batch.Batch, limit int) *batch.Batch {
	if b.NumRows() <= limit {
		return b
	}
	truncated := batch.New()
	for _, name := range b.ColumnNames() {
		col := b.Column(name)
		_ = truncated.AddColumn(name, col.Kind, col.Values[:limit])
	}
	return truncated
}
