package coerce

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ingestor/internal/batch"
)

// nullTokens are the case-folded string spellings that coerce to null
// for the String logical type (spec §4.1 step 2).
var nullTokens = map[string]struct{}{
	"none": {}, "nan": {}, "null": {}, "nil": {},
}

// dateLayouts are tried in order when coercing a raw value straight to
// DateTime (outside of the DateCast post-processor, which instead takes
// an explicit format string). Grounded on utils/time.go's StringToTime
// multi-layout fallthrough.
var dateLayouts = []string{
	time.RFC3339,
	time.DateTime,
	time.DateOnly,
}

// To coerces raw against logical type kind per the feature's fallback.
// raw == nil, or any conversion failure, yields fb's declared fallback.
func To(raw interface{}, kind batch.Kind, fb Fallback) batch.Value {
	if raw == nil {
		return fb.value(kind)
	}
	switch kind {
	case batch.Int:
		if v, ok := toInt(raw); ok {
			return batch.IntValue(v)
		}
	case batch.Float:
		if v, ok := toFloat(raw); ok {
			return batch.FloatValue(v)
		}
	case batch.Bool:
		if v, ok := toBool(raw); ok {
			return batch.BoolValue(v)
		}
	case batch.String:
		if v, ok := toString(raw); ok {
			if _, isNull := nullTokens[strings.ToLower(v)]; isNull {
				return batch.NullValue(batch.String)
			}
			return batch.StringValue(v)
		}
	case batch.DateTime:
		if v, ok := toTime(raw); ok {
			return batch.TimeValue(v)
		}
	}
	return fb.value(kind)
}

func toInt(raw interface{}) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float32:
		return int64(v), true
	case float64:
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		// tolerate "17.0"-style numeric strings
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		s := strings.TrimSpace(v)
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, false
		}
		f, _ := d.Float64()
		return f, true
	}
	return 0, false
}

func toBool(raw interface{}) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		return v != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "t":
			return true, true
		case "false", "0", "no", "f":
			return false, true
		}
	}
	return false, false
}

func toString(raw interface{}) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case int, int32, int64, float32, float64, bool:
		return toStringFallback(v), true
	case time.Time:
		return v.Format(time.RFC3339), true
	}
	return "", false
}

func toStringFallback(v interface{}) string {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.Itoa(int(t))
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func toTime(raw interface{}) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Cast converts an already-extracted Value to a different Kind — used
// by post-processor ColumnsCalculate and as batch.Cast's caster hook.
// Unlike To, Cast never consults a per-feature fallback: callers that
// need one wrap Cast themselves (batch.Cast's typecast-to-DTypes path
// always wants a bare null on failure, since DTypes columns don't carry
// per-feature fallbacks after the fact).
func Cast(v batch.Value, target batch.Kind) batch.Value {
	if v.Null {
		return batch.NullValue(target)
	}
	return To(v.Any(), target, Fallback{})
}

// CastWithFormat parses a String column to DateTime using an explicit
// layout, per post-process DateCast (spec §4.2). Unparseable values
// become null, never the zero time.
func CastWithFormat(v batch.Value, layout string) batch.Value {
	if v.Null || v.Kind != batch.String {
		return batch.NullValue(batch.DateTime)
	}
	t, err := time.Parse(layout, v.S)
	if err != nil {
		return batch.NullValue(batch.DateTime)
	}
	return batch.TimeValue(t)
}
