// Package dtypes persists the DTypes record spec §3/§6 describes:
// a collector's inferred per-column logical types, written exactly
// once from the first successful Batch and read-only thereafter. Path
// convention follows spec §6's CACHE/<collector>_dtypes.<bin>.
package dtypes

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"ingestor/internal/batch"
)

// Path returns the on-disk location of collector's DTypes record under
// cacheDir.
func Path(cacheDir, collector string) string {
	return filepath.Join(cacheDir, collector+"_dtypes.bin")
}

// Exists reports whether collector's DTypes record has been written.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load reads a previously-persisted DTypes record.
func Load(path string) (map[string]batch.Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dtypes: open %s: %w", path, err)
	}
	defer f.Close()
	var rec map[string]batch.Kind
	if err := gob.NewDecoder(f).Decode(&rec); err != nil {
		return nil, fmt.Errorf("dtypes: decode %s: %w", path, err)
	}
	return rec, nil
}

// Store persists rec to path atomically, creating parent dirs as
// needed. Callers (the Collector Runtime) are responsible for ensuring
// this is invoked at most once per collector (spec §8 invariant).
func Store(path string, rec map[string]batch.Kind) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dtypes: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".dtypes-*.tmp")
	if err != nil {
		return fmt.Errorf("dtypes: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := gob.NewEncoder(tmp).Encode(rec); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("dtypes: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("dtypes: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("dtypes: rename into place: %w", err)
	}
	return nil
}
