package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ingestor/internal/batch"
)

// Vendor is Stream2Omnisci (spec §4.4): before upload, every column is
// renamed `c -> c_t` (the source's fixed workaround for the vendor's
// reserved-word conflicts) and every String column is flagged
// categorical in the wire schema, since the vendor protocol treats
// string columns as a dictionary-encoded categorical type rather than
// free text.
type Vendor struct {
	Host     string
	Database string
	Table    string
	Endpoint string
	Client   *http.Client
}

func (v *Vendor) Kind() string { return "vendor.omnisci" }

func (v *Vendor) Invalidate() {} // protocol is stateless per call in this adapter

func (v *Vendor) Upload(ctx context.Context, b *batch.Batch, dtypes map[string]batch.Kind) error {
	if b.Empty() {
		return nil
	}
	cols := b.ColumnNames()
	schema := make(map[string]interface{}, len(cols))
	rows := make([]map[string]interface{}, b.NumRows())
	for i := 0; i < b.NumRows(); i++ {
		rows[i] = make(map[string]interface{}, len(cols))
	}
	for _, name := range cols {
		renamed := name + "_t"
		kind := dtypes[name]
		schema[renamed] = map[string]interface{}{
			"type":        omnisciType(kind),
			"categorical": kind == batch.String,
		}
		col := b.Column(name)
		for i, val := range col.Values {
			rows[i][renamed] = val.Any()
		}
	}

	body, _ := json.Marshal(map[string]interface{}{
		"database": v.Database,
		"table":    v.Table,
		"schema":   schema,
		"rows":     rows,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint+"/import", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("stream2omnisci: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := v.client().Do(req)
	if err != nil {
		return fmt.Errorf("stream2omnisci: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("stream2omnisci: import status %d", resp.StatusCode)
	}
	return nil
}

func (v *Vendor) client() *http.Client {
	if v.Client != nil {
		return v.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func omnisciType(k batch.Kind) string {
	switch k {
	case batch.Int:
		return "BIGINT"
	case batch.Float:
		return "DOUBLE"
	case batch.Bool:
		return "BOOLEAN"
	case batch.DateTime:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}
