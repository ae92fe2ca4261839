// Package coerce implements Typed Value Coercion (spec §4.1): mapping a
// Feature's declared logical type to a nullable batch.Value, applying
// per-type null fallbacks on any conversion failure.
package coerce

import "ingestor/internal/batch"

// Fallback holds a Feature's four declared null fallbacks
// (nan_int, nan_float, nan_bool, nan_str). A nil pointer means "true
// null"; a non-nil pointer supplies the fallback value. Spec default:
// null for Int|Float|String, false for Bool.
type Fallback struct {
	Int   *int64
	Float *float64
	Bool  *bool
	Str   *string
}

// DefaultFallback is the spec's declared default: null for
// Int/Float/String, false for Bool.
func DefaultFallback() Fallback {
	f := false
	return Fallback{Bool: &f}
}

func (f Fallback) value(k batch.Kind) batch.Value {
	switch k {
	case batch.Int:
		if f.Int != nil {
			return batch.IntValue(*f.Int)
		}
		return batch.NullValue(batch.Int)
	case batch.Float:
		if f.Float != nil {
			return batch.FloatValue(*f.Float)
		}
		return batch.NullValue(batch.Float)
	case batch.Bool:
		if f.Bool != nil {
			return batch.BoolValue(*f.Bool)
		}
		return batch.NullValue(batch.Bool)
	case batch.String:
		if f.Str != nil {
			return batch.StringValue(*f.Str)
		}
		return batch.NullValue(batch.String)
	case batch.DateTime:
		return batch.NullValue(batch.DateTime)
	}
	return batch.NullValue(k)
}
