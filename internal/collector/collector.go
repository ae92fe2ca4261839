// Package collector declares the process-wide registry of collectors
// (spec §3 Data Model: CollectorSpec), mirroring jobs.JobList's
// package-level slice-of-struct-literal idiom: each collector is a Go
// value, registered once at init time, immutable thereafter.
package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"ingestor/internal/apiform"
	"ingestor/internal/shardstore"
	"ingestor/internal/store"
	"ingestor/internal/stream"
)

// FetchFunc pulls the raw documents for one collect tick. Per spec
// §4.6 step 3, anything other than a non-empty list means "nothing to
// do this tick" — FetchFunc signals that with a nil/empty slice, not
// necessarily an error.
type FetchFunc func(ctx context.Context) ([]interface{}, error)

// FormFunc builds a fresh ApiForm for one tick. A new ApiForm per tick
// matches the lifetime spec §3 gives it ("instantiated per collect
// tick; short-lived") — MergeStatic post-processors may read a file
// whose presence changes between ticks, so CheckDependencies must run
// against a fresh instance every time.
type FormFunc func() *apiform.ApiForm

// Spec is one collector's declarative pipeline configuration. A Spec
// with Period == 0 is disabled: the Process Supervisor skips it
// entirely (spec §4.7).
type Spec struct {
	Name   string
	Period time.Duration

	Fetch FetchFunc
	Form  FormFunc

	Streams []stream.Sink
	Stores  []store.Spec

	// Debug enables the developer-only truncation knob (spec §4.6 step
	// 5); DebugLimit is the row cap applied when Debug is set. Neither
	// field has any effect in production.
	Debug      bool
	DebugLimit int
}

func (s *Spec) String() string {
	return fmt.Sprintf("collector(%s, period=%s, streams=%d, stores=%d)", s.Name, s.Period, len(s.Streams), len(s.Stores))
}

var (
	mu       sync.Mutex
	registry = map[string]*Spec{}
)

// Register adds spec to the process-wide registry. Panics on a
// duplicate name, matching the teacher's fail-fast approach to
// duplicate job registration (jobs.JobList is a literal slice; two
// entries with the same Name would simply shadow one another silently,
// which this registry refuses to allow).
func Register(spec *Spec) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[spec.Name]; exists {
		panic(fmt.Sprintf("collector: duplicate registration for %q", spec.Name))
	}
	registry[spec.Name] = spec
}

// Get returns the registered Spec by name.
func Get(name string) (*Spec, bool) {
	mu.Lock()
	defer mu.Unlock()
	s, ok := registry[name]
	return s, ok
}

// All returns every registered Spec, in no particular order.
func All() []*Spec {
	mu.Lock()
	defer mu.Unlock()
	out := make([]*Spec, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	return out
}

// DefaultShardPath reproduces spec §4.4's Stream2Local default:
// STORE/<collector>/<fmt>/.
func DefaultShardPath(storeRoot, collector string, format shardstore.Format) string {
	return filepath.Join(storeRoot, collector, format.Ext())
}
