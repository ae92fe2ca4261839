package shardstore

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ingestor/internal/batch"
)

// csvCodec writes a plain header + data CSV, preceded by a single
// "#dtypes:" comment line carrying the column kinds — CSV has no
// native type system, so a shard must carry its own schema to survive
// a round trip without an explicit dtypes hint.
type csvCodec struct{}

const csvNullToken = ""

func (csvCodec) Encode(w io.Writer, b *batch.Batch) error {
	cols := b.ColumnNames()
	kinds := make([]string, len(cols))
	for i, name := range cols {
		kinds[i] = name + ":" + b.Column(name).Kind.DTypeName()
	}
	if _, err := fmt.Fprintf(w, "#dtypes:%s\n", strings.Join(kinds, ",")); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	for i := 0; i < b.NumRows(); i++ {
		record := make([]string, len(cols))
		for j, name := range cols {
			v := b.Column(name).Values[i]
			record[j] = csvCell(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(v batch.Value) string {
	if v.Null {
		return csvNullToken
	}
	switch v.Kind {
	case batch.Int:
		return strconv.FormatInt(v.I, 10)
	case batch.Float:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case batch.Bool:
		return strconv.FormatBool(v.B)
	case batch.DateTime:
		return v.T.Format(time.RFC3339Nano)
	default:
		return v.S
	}
}

func (csvCodec) Decode(r io.Reader, dtypes map[string]batch.Kind) (*batch.Batch, error) {
	br := bufio.NewReader(r)
	dtypeLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("shardstore: decode csv shard: %w", err)
	}
	embedded := parseDTypeLine(strings.TrimRight(dtypeLine, "\n"))

	cr := csv.NewReader(br)
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return batch.New(), nil
		}
		return nil, fmt.Errorf("shardstore: decode csv header: %w", err)
	}

	kinds := make([]batch.Kind, len(header))
	for i, name := range header {
		if dtypes != nil {
			if k, ok := dtypes[name]; ok {
				kinds[i] = k
				continue
			}
		}
		if k, ok := embedded[name]; ok {
			kinds[i] = k
			continue
		}
		kinds[i] = batch.String
	}

	cols := make([][]batch.Value, len(header))
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("shardstore: decode csv row: %w", err)
		}
		for j, cell := range record {
			cols[j] = append(cols[j], parseCsvCell(cell, kinds[j]))
		}
	}

	out := batch.New()
	for j, name := range header {
		if err := out.AddColumn(name, kinds[j], cols[j]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parseCsvCell(cell string, k batch.Kind) batch.Value {
	if cell == csvNullToken {
		return batch.NullValue(k)
	}
	switch k {
	case batch.Int:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return batch.NullValue(k)
		}
		return batch.IntValue(n)
	case batch.Float:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return batch.NullValue(k)
		}
		return batch.FloatValue(f)
	case batch.Bool:
		bv, err := strconv.ParseBool(cell)
		if err != nil {
			return batch.NullValue(k)
		}
		return batch.BoolValue(bv)
	case batch.DateTime:
		t, err := time.Parse(time.RFC3339Nano, cell)
		if err != nil {
			return batch.NullValue(k)
		}
		return batch.TimeValue(t)
	default:
		return batch.StringValue(cell)
	}
}

func parseDTypeLine(line string) map[string]batch.Kind {
	out := map[string]batch.Kind{}
	line = strings.TrimPrefix(line, "#dtypes:")
	for _, pair := range strings.Split(line, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if k, err := batch.ParseDTypeName(parts[1]); err == nil {
			out[parts[0]] = k
		}
	}
	return out
}
