// Package batch implements the typed columnar table that flows between
// the ApiForm pipeline, the shard store, and every stream/store sink.
package batch

import "fmt"

// Kind is one of the five logical types a Feature or column can carry.
type Kind int

const (
	Int Kind = iota
	Float
	Bool
	String
	DateTime
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "Int64"
	case Float:
		return "Float64"
	case Bool:
		return "Bool"
	case String:
		return "String"
	case DateTime:
		return "DateTime"
	}
	return "Unknown"
}

// DTypeName returns the persisted DTypes-record spelling for k, per
// spec §6: {"string","bool","Int64"|"int64","float64","datetime64[ns]"}.
func (k Kind) DTypeName() string {
	switch k {
	case Int:
		return "Int64"
	case Float:
		return "float64"
	case Bool:
		return "bool"
	case String:
		return "string"
	case DateTime:
		return "datetime64[ns]"
	}
	return ""
}

// ParseDTypeName inverts DTypeName, accepting both "Int64" and "int64"
// per spec §6's explicit note that either spelling may appear.
func ParseDTypeName(s string) (Kind, error) {
	switch s {
	case "string":
		return String, nil
	case "bool":
		return Bool, nil
	case "Int64", "int64":
		return Int, nil
	case "float64":
		return Float, nil
	case "datetime64[ns]":
		return DateTime, nil
	}
	return 0, fmt.Errorf("batch: unknown dtype name %q", s)
}
