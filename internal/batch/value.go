package batch

import "time"

// Value is a single nullable cell. Every column is homogeneous in Kind;
// Value stores all five variants in one struct rather than behind an
// interface so that columns stay a contiguous slice (Design Notes §9:
// "do not rely on a single dynamic frame type" — here that's turned
// around into "do not rely on boxed interface{} cells" for the same
// reason: each cast path is explicit instead of going through reflection).
type Value struct {
	Kind  Kind
	Null  bool
	I     int64
	F     float64
	B     bool
	S     string
	T     time.Time
}

func NullValue(k Kind) Value { return Value{Kind: k, Null: true} }

func IntValue(v int64) Value      { return Value{Kind: Int, I: v} }
func FloatValue(v float64) Value  { return Value{Kind: Float, F: v} }
func BoolValue(v bool) Value      { return Value{Kind: Bool, B: v} }
func StringValue(v string) Value  { return Value{Kind: String, S: v} }
func TimeValue(v time.Time) Value { return Value{Kind: DateTime, T: v} }

// Equal reports whether two values of the same Kind are equal, treating
// two nulls as equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Null || o.Null {
		return v.Null == o.Null
	}
	switch v.Kind {
	case Int:
		return v.I == o.I
	case Float:
		return v.F == o.F
	case Bool:
		return v.B == o.B
	case String:
		return v.S == o.S
	case DateTime:
		return v.T.Equal(o.T)
	}
	return false
}

// Any returns the value as a generic interface{}, nil for null — used by
// codecs (JSON/CSV) and by post-processor producer callbacks.
func (v Value) Any() interface{} {
	if v.Null {
		return nil
	}
	switch v.Kind {
	case Int:
		return v.I
	case Float:
		return v.F
	case Bool:
		return v.B
	case String:
		return v.S
	case DateTime:
		return v.T
	}
	return nil
}
