package apiform

import (
	"fmt"
	"os"

	"ingestor/internal/batch"
	"ingestor/internal/coerce"
	"ingestor/internal/shardstore"
)

// PostProcessor is one ordered column-shaping step run after typecast.
type PostProcessor interface {
	PostProcess(b *batch.Batch) (*batch.Batch, error)
}

// ColumnAdd assigns Producer(), broadcast to every row, cast to Kind.
type ColumnAdd struct {
	Key      string
	Producer func() interface{}
	Kind     batch.Kind
}

func (c ColumnAdd) PostProcess(b *batch.Batch) (*batch.Batch, error) {
	v := coerce.To(c.Producer(), c.Kind, coerce.Fallback{})
	if err := b.SetColumn(c.Key, c.Kind, repeat(v, b.NumRows())); err != nil {
		return nil, fmt.Errorf("apiform: column add %q: %w", c.Key, err)
	}
	return b, nil
}

func repeat(v batch.Value, n int) []batch.Value {
	out := make([]batch.Value, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// ColumnApply maps Fn over column Key, casting the result to Kind.
type ColumnApply struct {
	Key  string
	Fn   func(batch.Value) interface{}
	Kind batch.Kind
}

func (c ColumnApply) PostProcess(b *batch.Batch) (*batch.Batch, error) {
	col := b.Column(c.Key)
	if col == nil {
		return nil, fmt.Errorf("apiform: column apply: no such column %q", c.Key)
	}
	out := make([]batch.Value, len(col.Values))
	for i, v := range col.Values {
		out[i] = coerce.To(c.Fn(v), c.Kind, coerce.Fallback{})
	}
	if err := b.SetColumn(c.Key, c.Kind, out); err != nil {
		return nil, fmt.Errorf("apiform: column apply %q: %w", c.Key, err)
	}
	return b, nil
}

// ColumnsCalculate derives one or more new/overwritten columns from the
// whole Batch at once — the only post-processor that can see more than
// one column's worth of context in its callback.
type ColumnsCalculate struct {
	Keys  []string
	Fn    func(*batch.Batch) (*batch.Batch, error)
	Kinds map[string]batch.Kind
}

func (c ColumnsCalculate) PostProcess(b *batch.Batch) (*batch.Batch, error) {
	derived, err := c.Fn(b)
	if err != nil {
		return nil, fmt.Errorf("apiform: columns calculate: %w", err)
	}
	for _, key := range c.Keys {
		col := derived.Column(key)
		if col == nil {
			return nil, fmt.Errorf("apiform: columns calculate: fn did not produce column %q", key)
		}
		kind := c.Kinds[key]
		out := make([]batch.Value, len(col.Values))
		for i, v := range col.Values {
			out[i] = coerce.Cast(v, kind)
		}
		if err := b.SetColumn(key, kind, out); err != nil {
			return nil, fmt.Errorf("apiform: columns calculate %q: %w", key, err)
		}
	}
	return b, nil
}

// DateCast parses a String column into DateTime using an explicit
// layout; unparseable values become null.
type DateCast struct {
	Key    string
	Format string
}

func (d DateCast) PostProcess(b *batch.Batch) (*batch.Batch, error) {
	col := b.Column(d.Key)
	if col == nil {
		return nil, fmt.Errorf("apiform: date cast: no such column %q", d.Key)
	}
	out := make([]batch.Value, len(col.Values))
	for i, v := range col.Values {
		out[i] = coerce.CastWithFormat(v, d.Format)
	}
	if err := b.SetColumn(d.Key, batch.DateTime, out); err != nil {
		return nil, fmt.Errorf("apiform: date cast %q: %w", d.Key, err)
	}
	return b, nil
}

// DropNa drops rows null in any of Keys.
type DropNa struct {
	Keys []string
}

func (d DropNa) PostProcess(b *batch.Batch) (*batch.Batch, error) {
	out, err := b.DropNA(d.Keys)
	if err != nil {
		return nil, fmt.Errorf("apiform: drop na: %w", err)
	}
	return out, nil
}

// MergeStatic left-joins the working Batch against a previously
// persisted local Batch keyed by Key. The referenced shard is loaded
// fresh on every tick rather than cached, matching the source's
// merge_static post-processor which treats the static file as
// externally refreshable.
type MergeStatic struct {
	Key    string
	Path   string
	Format shardstore.Format
	DTypes map[string]batch.Kind
}

func (m MergeStatic) PostProcess(b *batch.Batch) (*batch.Batch, error) {
	if err := checkMergeStaticPath(m); err != nil {
		return nil, err
	}
	static := shardstore.Load(m.Path, m.Format, m.DTypes)
	out, err := b.MergeLeft(static, m.Key)
	if err != nil {
		return nil, fmt.Errorf("apiform: merge static: %w", err)
	}
	return out, nil
}

func checkMergeStaticPath(m MergeStatic) error {
	if _, err := os.Stat(m.Path); err != nil {
		return fmt.Errorf("apiform: merge static: static file %s unavailable: %w", m.Path, err)
	}
	return nil
}
