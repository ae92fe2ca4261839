package shardstore

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"ingestor/internal/batch"
)

// jsonCodec stores a Batch table-oriented: an explicit column/dtype
// schema plus a row-major value matrix. Grounded on
// file_converter.py's to_json/read_json pair, which round-trips
// pandas' orient="table" — the Go analogue keeps dtypes explicit
// rather than relying on JSON's untyped numbers.
type jsonCodec struct{}

type jsonShard struct {
	Columns []string             `json:"columns"`
	DTypes  map[string]string    `json:"dtypes"`
	Rows    [][]interface{}      `json:"rows"`
}

func (jsonCodec) Encode(w io.Writer, b *batch.Batch) error {
	cols := b.ColumnNames()
	dtypes := make(map[string]string, len(cols))
	for _, name := range cols {
		dtypes[name] = b.Column(name).Kind.DTypeName()
	}
	rows := make([][]interface{}, b.NumRows())
	for i := 0; i < b.NumRows(); i++ {
		row := make([]interface{}, len(cols))
		for j, name := range cols {
			v := b.Column(name).Values[i]
			if v.Null {
				row[j] = nil
				continue
			}
			if v.Kind == batch.DateTime {
				row[j] = v.T.Format(time.RFC3339Nano)
			} else {
				row[j] = v.Any()
			}
		}
		rows[i] = row
	}
	enc := json.NewEncoder(w)
	return enc.Encode(jsonShard{Columns: cols, DTypes: dtypes, Rows: rows})
}

func (jsonCodec) Decode(r io.Reader, dtypes map[string]batch.Kind) (*batch.Batch, error) {
	var shard jsonShard
	if err := json.NewDecoder(r).Decode(&shard); err != nil {
		return nil, fmt.Errorf("shardstore: decode json shard: %w", err)
	}
	kinds := make(map[string]batch.Kind, len(shard.Columns))
	for _, name := range shard.Columns {
		if dtypes != nil {
			if k, ok := dtypes[name]; ok {
				kinds[name] = k
				continue
			}
		}
		k, err := batch.ParseDTypeName(shard.DTypes[name])
		if err != nil {
			return nil, fmt.Errorf("shardstore: column %q: %w", name, err)
		}
		kinds[name] = k
	}

	out := batch.New()
	for j, name := range shard.Columns {
		k := kinds[name]
		values := make([]batch.Value, len(shard.Rows))
		for i, row := range shard.Rows {
			values[i] = jsonValue(row[j], k)
		}
		if err := out.AddColumn(name, k, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func jsonValue(raw interface{}, k batch.Kind) batch.Value {
	if raw == nil {
		return batch.NullValue(k)
	}
	switch k {
	case batch.Int:
		if f, ok := raw.(float64); ok {
			return batch.IntValue(int64(f))
		}
	case batch.Float:
		if f, ok := raw.(float64); ok {
			return batch.FloatValue(f)
		}
	case batch.Bool:
		if bv, ok := raw.(bool); ok {
			return batch.BoolValue(bv)
		}
	case batch.String:
		if s, ok := raw.(string); ok {
			return batch.StringValue(s)
		}
	case batch.DateTime:
		if s, ok := raw.(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return batch.TimeValue(t)
			}
		}
	}
	return batch.NullValue(k)
}
