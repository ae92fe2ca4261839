package shardstore

import (
	"io"

	"ingestor/internal/batch"
)

// Codec encodes/decodes one Batch to/from a single shard file. Decode
// must tolerate a dtypes hint of nil (CSV/JSON use it to recover typed
// columns; Binary and Parquet carry their own schema and ignore it).
type Codec interface {
	Encode(w io.Writer, b *batch.Batch) error
	Decode(r io.Reader, dtypes map[string]batch.Kind) (*batch.Batch, error)
}
