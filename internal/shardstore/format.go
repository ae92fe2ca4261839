// Package shardstore implements the Shard Store (spec §4.3): uniform
// read/write of tabular Batches to/from files in one of four formats,
// plus directory composition. Grounded on
// original_source/src/api2db/stream/file_converter.py's per-format
// dispatch table.
package shardstore

import "fmt"

// Format is one of the four on-disk shard encodings spec §2/§4.3 names.
type Format int

const (
	Parquet Format = iota
	JSON
	CSV
	Binary // pickle-equivalent binary serialization
)

func (f Format) String() string {
	switch f {
	case Parquet:
		return "parquet"
	case JSON:
		return "json"
	case CSV:
		return "csv"
	case Binary:
		return "binary"
	}
	return "unknown"
}

// Ext returns the file extension used for shard and composed file names
// (spec §6: "<epoch_ms>.<ext>").
func (f Format) Ext() string {
	switch f {
	case Parquet:
		return "parquet"
	case JSON:
		return "json"
	case CSV:
		return "csv"
	case Binary:
		return "bin"
	}
	return "dat"
}

// ParseFormat parses the string spellings a CollectorSpec/Stream config
// uses to select a format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "parquet":
		return Parquet, nil
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "binary", "pickle":
		return Binary, nil
	}
	return 0, fmt.Errorf("shardstore: unknown format %q", s)
}

func codecFor(f Format) Codec {
	switch f {
	case Parquet:
		return parquetCodec{}
	case JSON:
		return jsonCodec{}
	case CSV:
		return csvCodec{}
	case Binary:
		return binaryCodec{}
	}
	return nil
}
