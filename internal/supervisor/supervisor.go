// Package supervisor implements the Process Supervisor (spec §4.7):
// it launches one independent Runtime per enabled collector and, in
// debug mode, wires a shared log hub so every collector's log records
// surface on a central listener. Grounded on cmd/server/main.go's
// "start the scheduler, then block" shape, fanned out across multiple
// collectors with golang.org/x/sync/errgroup instead of the teacher's
// single scheduler.
package supervisor

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ingestor/internal/collector"
	"ingestor/internal/conn"
	"ingestor/internal/runtime"
)

// Supervisor owns one Runtime per enabled collector (Period > 0).
// Disabled collectors (Period == 0) are never started.
type Supervisor struct {
	Conn      *conn.Conn
	CacheDir  string
	StoreRoot string
	Debug     bool

	// LogDir is where each collector's LOGS/<name>.log is written
	// (spec §6). New sets it to "LOGS" (relative to the process's working
	// directory, matching original_source's log.py); Run uses it as given.
	LogDir string
	// DebugAddr is the listen address for the debug-mode log
	// websocket endpoint. Defaults to DefaultDebugAddr if left empty.
	DebugAddr string

	Hub *LogHub

	// debugReady, if non-nil, receives the debug server's bound
	// address once listening starts. Set only by tests that need a
	// dynamic port (DebugAddr == "127.0.0.1:0").
	debugReady chan string
}

// New builds a Supervisor. When debug is true, a LogHub is created;
// production mode leaves Hub nil. Unlike an earlier version of this
// package, the hub is no longer wired as a global logrus hook here —
// each collector gets its own file-backed *logrus.Logger (see
// collectorLogger) and the hook is attached to that logger directly in
// Run, once per started collector.
func New(c *conn.Conn, cacheDir, storeRoot string, debug bool) *Supervisor {
	s := &Supervisor{Conn: c, CacheDir: cacheDir, StoreRoot: storeRoot, Debug: debug, LogDir: "LOGS"}
	if debug {
		s.Hub = NewLogHub()
	}
	return s
}

// Run starts every enabled registered collector and blocks until ctx
// is cancelled or one Runtime returns a non-recoverable error. In
// debug mode it also serves the shared log hub over a websocket
// endpoint (runDebugServer) — without it, Hub.Broadcast would fan out
// to a set no client ever joined.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if s.Debug {
		g.Go(func() error { return s.runDebugServer(gctx) })
	}

	enabled := 0
	for _, spec := range collector.All() {
		if spec.Period <= 0 {
			logrus.WithField("collector", spec.Name).Info("supervisor: collector disabled (period == 0), skipping")
			continue
		}
		spec := spec
		enabled++
		rt := runtime.New(spec, s.Conn, s.CacheDir, s.StoreRoot)

		log, closeLog, err := collectorLogger(s.LogDir, spec.Name)
		if err != nil {
			logrus.WithError(err).WithField("collector", spec.Name).Error("supervisor: per-collector log file unavailable, falling back to stdout")
		} else {
			if s.Debug {
				log.AddHook(&hubHook{hub: s.Hub})
			}
			rt.SetLogger(log)
		}

		g.Go(func() error {
			if closeLog != nil {
				defer closeLog.Close()
			}
			logrus.WithField("collector", spec.Name).Info("supervisor: starting collector runtime")
			return rt.Run(gctx)
		})
	}

	logrus.WithField("count", enabled).Info("supervisor: launched collector runtimes")
	return g.Wait()
}
