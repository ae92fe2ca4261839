package batch

import (
	"fmt"
	"sort"
)

// Caster converts a Value of one Kind to another, returning a null
// Value of the target Kind on any failure (coercion never errors out of
// the batch package — callers decide whether that's fatal).
type Caster func(Value) Value

// Cast returns a new Batch whose columns match dtypes exactly: existing
// columns are cast in place (via caster), columns present in dtypes but
// absent from b become all-null, and columns in b but absent from
// dtypes are dropped. Used by Store.Tick (§4.5 step 3) and by the
// Stream's failed-batch recovery (checkFailures).
func (b *Batch) Cast(dtypes map[string]Kind, caster func(Value, Kind) Value) (*Batch, error) {
	if caster == nil {
		return nil, fmt.Errorf("batch: Cast requires a caster")
	}
	out := New()
	out.rows = b.rows
	names := make([]string, 0, len(dtypes))
	for name := range dtypes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		kind := dtypes[name]
		col := b.Column(name)
		values := make([]Value, b.rows)
		if col == nil {
			for i := range values {
				values[i] = NullValue(kind)
			}
		} else {
			for i, v := range col.Values {
				if v.Kind == kind {
					values[i] = v
				} else {
					values[i] = caster(v, kind)
				}
			}
		}
		if err := out.AddColumn(name, kind, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}
