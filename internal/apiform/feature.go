// Package apiform implements the ApiForm Pipeline (spec §4.2):
// pre-process -> row extraction -> typecast -> post-process, turning one
// raw upstream document into a typed batch.Batch. Grounded on
// original_source/src/api2db/ingest/api_form.py's stage ordering.
package apiform

import (
	"fmt"

	"ingestor/internal/batch"
	"ingestor/internal/coerce"
)

// Row is one element of the working row sequence after pre-processing:
// almost always a map[string]interface{}, but pre-processors operate on
// interface{} since the working data is an untyped tree until row
// extraction fixes it into rows.
type Row = map[string]interface{}

// Feature is one column extraction rule (spec §3): a unique key, an
// extractor pulling a raw value out of a row, a declared logical type,
// and a per-type null fallback.
type Feature struct {
	Key       string
	Extractor func(row interface{}) (interface{}, error)
	Kind      batch.Kind
	Fallback  coerce.Fallback
}

// ByKey builds the common case extractor: a flat lookup of key in a
// row mapping.
func ByKey(key string) func(row interface{}) (interface{}, error) {
	return func(row interface{}) (interface{}, error) {
		m, ok := row.(Row)
		if !ok {
			return nil, fmt.Errorf("apiform: row is not a mapping")
		}
		v, ok := m[key]
		if !ok {
			return nil, fmt.Errorf("apiform: row missing key %q", key)
		}
		return v, nil
	}
}
