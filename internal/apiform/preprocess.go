package apiform

import (
	"fmt"

	"ingestor/internal/batch"
)

// Global is a value computed by GlobalExtract (spec §4.2 step 1): it
// does not flow through row extraction, instead becoming a constant
// column added during typecast.
type Global struct {
	Value interface{}
	Kind  batch.Kind
}

// PreProcessor is one ordered row-shaping step run before row
// extraction. Implementations may replace the working data (ListExtract),
// shape it (FeatureFlatten, BadRowSwap), or leave it untouched while
// recording a Global (GlobalExtract).
type PreProcessor interface {
	PreProcess(doc interface{}, globals map[string]Global) (interface{}, error)
}

// GlobalExtract computes one value from the whole document without
// mutating the working data.
type GlobalExtract struct {
	Key       string
	Extractor func(doc interface{}) (interface{}, error)
	Kind      batch.Kind
}

func (g GlobalExtract) PreProcess(doc interface{}, globals map[string]Global) (interface{}, error) {
	v, err := g.Extractor(doc)
	if err != nil {
		// A failed GlobalExtract does not abort the tick; the global is
		// simply absent and typecast later adds no such column.
		return doc, nil
	}
	globals[g.Key] = Global{Value: v, Kind: g.Kind}
	return doc, nil
}

// ListExtract replaces the working data with a row sequence produced
// by Extractor. A failure here short-circuits the whole pipeline to
// empty.
type ListExtract struct {
	Extractor func(doc interface{}) ([]interface{}, error)
}

func (l ListExtract) PreProcess(doc interface{}, globals map[string]Global) (interface{}, error) {
	rows, err := l.Extractor(doc)
	if err != nil {
		return nil, fmt.Errorf("apiform: list extract: %w", err)
	}
	out := make([]interface{}, len(rows))
	copy(out, rows)
	return out, nil
}

// FeatureFlatten explodes one row per list element found at row[Key],
// keeps mapping-valued rows unchanged, and drops rows lacking Key.
type FeatureFlatten struct {
	Key string
}

func (f FeatureFlatten) PreProcess(doc interface{}, globals map[string]Global) (interface{}, error) {
	rows, ok := doc.([]interface{})
	if !ok {
		return nil, fmt.Errorf("apiform: feature flatten: working data is not a row sequence")
	}
	var out []interface{}
	for _, r := range rows {
		rowMap, ok := r.(Row)
		if !ok {
			continue
		}
		val, exists := rowMap[f.Key]
		if !exists {
			continue
		}
		switch lv := val.(type) {
		case []interface{}:
			for _, elem := range lv {
				out = append(out, cloneWith(rowMap, f.Key, elem))
			}
		default:
			out = append(out, rowMap)
		}
	}
	return out, nil
}

func cloneWith(row Row, key string, value interface{}) Row {
	clone := make(Row, len(row))
	for k, v := range row {
		clone[k] = v
	}
	clone[key] = value
	return clone
}

// BadRowSwap conditionally swaps two nested values in a row. A row
// missing Key1 anywhere is dropped outright; a row for which Predicate
// is true but Key2 cannot be located is also dropped; rows for which
// Predicate is false are kept unchanged regardless of Key2.
type BadRowSwap struct {
	Key1, Key2 string
	Predicate  func(row Row) bool
}

func (b BadRowSwap) PreProcess(doc interface{}, globals map[string]Global) (interface{}, error) {
	rows, ok := doc.([]interface{})
	if !ok {
		return nil, fmt.Errorf("apiform: bad row swap: working data is not a row sequence")
	}
	var out []interface{}
	for _, r := range rows {
		rowMap, ok := r.(Row)
		if !ok {
			continue
		}
		c1, ok := locate(rowMap, b.Key1)
		if !ok {
			continue
		}
		if !b.Predicate(rowMap) {
			out = append(out, rowMap)
			continue
		}
		c2, ok := locate(rowMap, b.Key2)
		if !ok {
			continue
		}
		v1, v2 := c1.get(), c2.get()
		c1.set(v2)
		c2.set(v1)
		out = append(out, rowMap)
	}
	return out, nil
}
