package stream

import "ingestor/internal/batch"

// LogicalSchema maps a DTypes record to the vendor-agnostic logical
// column types spec §4.4 names, for sinks that must declare a remote
// schema (SQL, warehouse, Omnisci). Kinds with no declared mapping are
// omitted — spec §4.4 leaves "reject or pass-through" to the
// implementer; this module passes through by omission, and it is each
// Sink's job to decide whether an omitted column is fatal.
func LogicalSchema(dtypes map[string]batch.Kind) map[string]string {
	out := make(map[string]string, len(dtypes))
	for name, kind := range dtypes {
		if t, ok := logicalType(kind); ok {
			out[name] = t
		}
	}
	return out
}

func logicalType(k batch.Kind) (string, bool) {
	switch k {
	case batch.String:
		return "STRING", true
	case batch.Bool:
		return "BOOL", true
	case batch.Int:
		return "INTEGER", true
	case batch.Float:
		return "FLOAT", true
	case batch.DateTime:
		return "DATETIME", true
	}
	return "", false
}
