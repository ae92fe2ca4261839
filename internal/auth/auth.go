// Package auth implements opaque credential loading (spec §6: "AUTH/
// credential files") as a narrow sink interface — auth file parsing is
// an external collaborator per spec §1, treated here as a small loader
// with a strict schema, not a general secrets manager. Grounded on
// internal/data/conn.go's env-driven DSN construction.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
)

// SQLCredential is the AUTH/ schema for SQL and Omnisci sinks (spec §6):
// JSON object with exactly username, password, host. Missing keys are
// rejected at load time (ConfigError, spec §7).
type SQLCredential struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
}

// LoadSQLCredential reads and validates a SQL/Omnisci auth file.
func LoadSQLCredential(path string) (SQLCredential, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SQLCredential{}, fmt.Errorf("auth: read %s: %w", path, err)
	}
	var cred SQLCredential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return SQLCredential{}, fmt.Errorf("auth: parse %s: %w", path, err)
	}
	if cred.Username == "" || cred.Password == "" || cred.Host == "" {
		return SQLCredential{}, fmt.Errorf("auth: %s missing one of username/password/host", path)
	}
	return cred, nil
}

// WarehouseCredential is the opaque service-account JSON blob passed
// through to the warehouse vendor client (spec §6), kept as raw bytes
// since the core never interprets its fields.
type WarehouseCredential struct {
	ServiceAccountJSON []byte
}

// LoadWarehouseCredential reads a warehouse auth file without parsing it.
func LoadWarehouseCredential(path string) (WarehouseCredential, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WarehouseCredential{}, fmt.Errorf("auth: read %s: %w", path, err)
	}
	if !json.Valid(raw) {
		return WarehouseCredential{}, fmt.Errorf("auth: %s is not valid JSON", path)
	}
	return WarehouseCredential{ServiceAccountJSON: raw}, nil
}
