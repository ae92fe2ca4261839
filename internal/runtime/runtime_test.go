package runtime

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingestor/internal/apiform"
	"ingestor/internal/batch"
	"ingestor/internal/collector"
	"ingestor/internal/conn"
	"ingestor/internal/dtypes"
	"ingestor/internal/stream"
)

func sampleForm() *apiform.ApiForm {
	return &apiform.ApiForm{
		Name: "widgets",
		Features: []apiform.Feature{
			{Key: "id", Kind: batch.Int, Extractor: apiform.ByKey("id")},
		},
	}
}

func sampleSpec(fetch collector.FetchFunc) *collector.Spec {
	return &collector.Spec{
		Name:   "widgets",
		Period: time.Minute,
		Fetch:  fetch,
		Form:   sampleForm,
	}
}

func TestCollectRunsFormAndEnqueuesIntoEveryStream(t *testing.T) {
	c := conn.InitTest(t)
	root := t.TempDir()

	fetch := func(ctx context.Context) ([]interface{}, error) {
		return []interface{}{
			[]interface{}{apiform.Row{"id": 1}, apiform.Row{"id": 2}},
		}, nil
	}
	spec := sampleSpec(fetch)
	spec.Form = func() *apiform.ApiForm {
		return &apiform.ApiForm{
			Name: "widgets",
			PreProcessors: []apiform.PreProcessor{
				apiform.ListExtract{Extractor: func(doc interface{}) ([]interface{}, error) {
					return doc.([]interface{}), nil
				}},
			},
			Features: []apiform.Feature{
				{Key: "id", Kind: batch.Int, Extractor: apiform.ByKey("id")},
			},
		}
	}

	r := New(spec, c, filepath.Join(root, "cache"), root)

	sink := &captureSink{}
	s := stream.New("widgets", sink, root, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer func() {
		s.Stop()
		<-s.Done()
	}()

	r.collect(ctx, []*stream.Stream{s})

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.uploaded) == 1
	}, 3*time.Second, 50*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 2, sink.uploaded[0].NumRows())
}

func TestPersistDTypesOnceWritesExactlyOnce(t *testing.T) {
	c := conn.InitTest(t)
	root := t.TempDir()
	spec := sampleSpec(func(ctx context.Context) ([]interface{}, error) { return nil, nil })
	r := New(spec, c, filepath.Join(root, "cache"), root)

	b := batch.New()
	require.NoError(t, b.AddColumn("id", batch.Int, []batch.Value{batch.IntValue(1)}))

	assert.False(t, dtypes.Exists(r.dtypesPath))
	r.persistDTypesOnce(b)
	require.True(t, dtypes.Exists(r.dtypesPath))

	rec, err := dtypes.Load(r.dtypesPath)
	require.NoError(t, err)
	assert.Equal(t, batch.Int, rec["id"])

	// A second Batch with a different shape must not overwrite the
	// record: sync.Once bounds persistDTypesOnce to a single write per
	// Runtime lifetime.
	b2 := batch.New()
	require.NoError(t, b2.AddColumn("id", batch.Int, []batch.Value{batch.IntValue(2)}))
	require.NoError(t, b2.AddColumn("extra", batch.String, []batch.Value{batch.StringValue("x")}))
	r.persistDTypesOnce(b2)

	rec2, err := dtypes.Load(r.dtypesPath)
	require.NoError(t, err)
	assert.NotContains(t, rec2, "extra")
}

func TestTruncateCapsRows(t *testing.T) {
	b := batch.New()
	require.NoError(t, b.AddColumn("id", batch.Int, []batch.Value{
		batch.IntValue(1), batch.IntValue(2), batch.IntValue(3),
	}))

	out := truncate(b, 2)
	assert.Equal(t, 2, out.NumRows())

	same := truncate(b, 10)
	assert.Equal(t, 3, same.NumRows())
}

func TestDueAndMarkFirstCallFiresSubsequentWithinPeriodDoNot(t *testing.T) {
	c := conn.InitTest(t)
	ctx := context.Background()
	key := "runtime_test:due_and_mark"
	now := time.Now()

	assert.True(t, dueAndMark(ctx, c.Cache, key, time.Hour, now))
	assert.False(t, dueAndMark(ctx, c.Cache, key, time.Hour, now.Add(time.Minute)))
	assert.True(t, dueAndMark(ctx, c.Cache, key, time.Hour, now.Add(2*time.Hour)))
}

type captureSink struct {
	mu       sync.Mutex
	uploaded []*batch.Batch
}

func (c *captureSink) Kind() string { return "capture" }
func (c *captureSink) Invalidate()  {}
func (c *captureSink) Upload(_ context.Context, b *batch.Batch, _ map[string]batch.Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploaded = append(c.uploaded, b)
	return nil
}
