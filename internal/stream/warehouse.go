package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ingestor/internal/auth"
	"ingestor/internal/batch"
)

// Warehouse is Stream2Bigquery (spec §4.4): lazily creates a dataset
// and table (idempotent) on first batch, then uploads via the
// warehouse's "DataFrame to table" primitive. chunk_size is not
// exposed — spec §9 Design Notes retains chunk_size=0 as the only
// allowed value and treats chunking as a planned extension.
type Warehouse struct {
	Project  string
	Dataset  string
	Table    string
	Location string
	IfExists string // append | replace | fail
	Cred     auth.WarehouseCredential

	// Endpoint is the vendor API base URL; overridable for tests.
	Endpoint string
	Client   *http.Client

	mu      sync.Mutex
	created bool
}

func (w *Warehouse) Kind() string { return "warehouse.bigquery" }

func (w *Warehouse) Invalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.created = false
}

func (w *Warehouse) Upload(ctx context.Context, b *batch.Batch, dtypes map[string]batch.Kind) error {
	if err := w.ensureDatasetAndTable(ctx, dtypes); err != nil {
		return fmt.Errorf("stream2warehouse: ensure dataset/table: %w", err)
	}
	return w.insertRows(ctx, b)
}

func (w *Warehouse) ensureDatasetAndTable(ctx context.Context, dtypes map[string]batch.Kind) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.created {
		return nil
	}

	tok, err := w.tokenSource(ctx)
	if err != nil {
		return err
	}
	schema := LogicalSchema(dtypes)

	body, _ := json.Marshal(map[string]interface{}{
		"project":  w.Project,
		"dataset":  w.Dataset,
		"table":    w.Table,
		"location": w.Location,
		"ifExists": w.IfExists,
		"schema":   schema,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint+"/datasets:ensure", bytes.NewReader(body))
	if err != nil {
		return err
	}
	if err := w.authorize(req, tok); err != nil {
		return err
	}
	resp, err := w.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("warehouse ensure dataset/table: status %d", resp.StatusCode)
	}

	w.created = true
	return nil
}

func (w *Warehouse) insertRows(ctx context.Context, b *batch.Batch) error {
	if b.Empty() {
		return nil
	}
	tok, err := w.tokenSource(ctx)
	if err != nil {
		return err
	}

	cols := b.ColumnNames()
	rows := make([]map[string]interface{}, b.NumRows())
	for i := 0; i < b.NumRows(); i++ {
		row := make(map[string]interface{}, len(cols))
		for _, name := range cols {
			row[name] = b.Column(name).Values[i].Any()
		}
		rows[i] = row
	}
	body, _ := json.Marshal(map[string]interface{}{
		"project": w.Project,
		"dataset": w.Dataset,
		"table":   w.Table,
		"rows":    rows,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint+"/insertAll", bytes.NewReader(body))
	if err != nil {
		return err
	}
	if err := w.authorize(req, tok); err != nil {
		return err
	}
	resp, err := w.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("warehouse insertAll: status %d", resp.StatusCode)
	}
	return nil
}

func (w *Warehouse) tokenSource(ctx context.Context) (interface{ Token() (string, error) }, error) {
	return w.Cred.TokenSource(ctx, "https://www.googleapis.com/auth/bigquery")
}

func (w *Warehouse) authorize(req *http.Request, tok interface{ Token() (string, error) }) error {
	accessToken, err := tok.Token()
	if err != nil {
		return fmt.Errorf("warehouse: token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	return nil
}

func (w *Warehouse) client() *http.Client {
	if w.Client != nil {
		return w.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}
