package shardstore

import (
	"encoding/gob"
	"fmt"
	"io"

	"ingestor/internal/batch"
)

// binaryCodec is the pickle-equivalent format (spec §2 lists "pickle"
// among the source formats); Go has no pickle analogue so this uses
// encoding/gob, which — like pickle — serializes a language-native
// value graph rather than a text interchange format, and like pickle
// carries its own schema so Decode never needs a dtypes hint.
type binaryCodec struct{}

type gobValue struct {
	Kind batch.Kind
	Null bool
	I    int64
	F    float64
	B    bool
	S    string
	T    int64 // unix nano, only meaningful when Kind == DateTime
}

type gobColumn struct {
	Name   string
	Kind   batch.Kind
	Values []gobValue
}

type gobShard struct {
	Columns []gobColumn
}

func (binaryCodec) Encode(w io.Writer, b *batch.Batch) error {
	shard := gobShard{}
	for _, name := range b.ColumnNames() {
		col := b.Column(name)
		values := make([]gobValue, len(col.Values))
		for i, v := range col.Values {
			gv := gobValue{Kind: v.Kind, Null: v.Null, I: v.I, F: v.F, B: v.B, S: v.S}
			if v.Kind == batch.DateTime && !v.Null {
				gv.T = v.T.UnixNano()
			}
			values[i] = gv
		}
		shard.Columns = append(shard.Columns, gobColumn{Name: col.Name, Kind: col.Kind, Values: values})
	}
	if err := gob.NewEncoder(w).Encode(shard); err != nil {
		return fmt.Errorf("shardstore: encode binary shard: %w", err)
	}
	return nil
}

func (binaryCodec) Decode(r io.Reader, _ map[string]batch.Kind) (*batch.Batch, error) {
	var shard gobShard
	if err := gob.NewDecoder(r).Decode(&shard); err != nil {
		if err == io.EOF {
			return batch.New(), nil
		}
		return nil, fmt.Errorf("shardstore: decode binary shard: %w", err)
	}
	out := batch.New()
	for _, col := range shard.Columns {
		values := make([]batch.Value, len(col.Values))
		for i, gv := range col.Values {
			switch {
			case gv.Null:
				values[i] = batch.NullValue(gv.Kind)
			case gv.Kind == batch.Int:
				values[i] = batch.IntValue(gv.I)
			case gv.Kind == batch.Float:
				values[i] = batch.FloatValue(gv.F)
			case gv.Kind == batch.Bool:
				values[i] = batch.BoolValue(gv.B)
			case gv.Kind == batch.String:
				values[i] = batch.StringValue(gv.S)
			case gv.Kind == batch.DateTime:
				values[i] = batch.TimeValue(timeFromUnixNano(gv.T))
			default:
				values[i] = batch.NullValue(gv.Kind)
			}
		}
		if err := out.AddColumn(col.Name, col.Kind, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}
