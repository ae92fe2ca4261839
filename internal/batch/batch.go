package batch

import "fmt"

// Column is one named, typed, homogeneous slice of cells.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Batch is a finite, typed, columnar table — the unit of transport
// between the ApiForm pipeline and every stream/store sink (spec §3).
type Batch struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds an empty Batch with no columns and zero rows; columns are
// added afterwards with AddColumn, ConstantColumn or SetColumn.
func New() *Batch {
	return &Batch{index: map[string]int{}}
}

// NumRows returns the number of rows in the Batch.
func (b *Batch) NumRows() int { return b.rows }

// Empty reports whether the Batch has zero rows or zero columns.
func (b *Batch) Empty() bool { return b == nil || b.rows == 0 || len(b.columns) == 0 }

// ColumnNames returns column names in their declared order.
func (b *Batch) ColumnNames() []string {
	names := make([]string, len(b.columns))
	for i, c := range b.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or nil if absent.
func (b *Batch) Column(name string) *Column {
	i, ok := b.index[name]
	if !ok {
		return nil
	}
	return b.columns[i]
}

// HasColumn reports whether name is a column in b.
func (b *Batch) HasColumn(name string) bool {
	_, ok := b.index[name]
	return ok
}

// AddColumn appends a fully-populated column. len(values) must equal
// b.NumRows() unless b currently has zero columns, in which case it also
// sets the row count.
func (b *Batch) AddColumn(name string, kind Kind, values []Value) error {
	if _, exists := b.index[name]; exists {
		return fmt.Errorf("batch: duplicate column %q", name)
	}
	if len(b.columns) == 0 {
		b.rows = len(values)
	} else if len(values) != b.rows {
		return fmt.Errorf("batch: column %q has %d rows, batch has %d", name, len(values), b.rows)
	}
	b.index[name] = len(b.columns)
	b.columns = append(b.columns, &Column{Name: name, Kind: kind, Values: values})
	return nil
}

// ConstantColumn appends a column with the same value in every row —
// used to attach pre-process GlobalExtract values to every row (§4.2).
func (b *Batch) ConstantColumn(name string, kind Kind, v Value) error {
	values := make([]Value, b.rows)
	for i := range values {
		values[i] = v
	}
	// If the batch has no rows yet (e.g. a single-global-only tick),
	// ConstantColumn deliberately leaves it at zero rows; callers that
	// need at least one row add the row-bearing columns first.
	return b.AddColumn(name, kind, values)
}

// SetColumn replaces name's column in place if it exists (preserving its
// position), or appends it otherwise — used by post-processors that
// overwrite a column they also read (ColumnApply, ColumnsCalculate,
// DateCast) instead of AddColumn's duplicate-name rejection.
func (b *Batch) SetColumn(name string, kind Kind, values []Value) error {
	if i, exists := b.index[name]; exists {
		if len(b.columns) > 0 && len(values) != b.rows {
			return fmt.Errorf("batch: column %q has %d rows, batch has %d", name, len(values), b.rows)
		}
		b.columns[i] = &Column{Name: name, Kind: kind, Values: values}
		return nil
	}
	return b.AddColumn(name, kind, values)
}

// Row returns the values across all columns for row i, keyed by column
// name, for callers that operate row-wise instead of column-wise.
func (b *Batch) Row(i int) map[string]Value {
	row := make(map[string]Value, len(b.columns))
	for _, c := range b.columns {
		row[c.Name] = c.Values[i]
	}
	return row
}

// Clone returns a deep-enough copy (column slices copied, Values reused
// since Value is a plain struct) safe to mutate independently of b.
func (b *Batch) Clone() *Batch {
	out := New()
	out.rows = b.rows
	for _, c := range b.columns {
		values := make([]Value, len(c.Values))
		copy(values, c.Values)
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, &Column{Name: c.Name, Kind: c.Kind, Values: values})
	}
	return out
}

// DTypes returns the column-name -> logical-Kind map that gets persisted
// as the collector's DTypes record (spec §3, §6).
func (b *Batch) DTypes() map[string]Kind {
	out := make(map[string]Kind, len(b.columns))
	for _, c := range b.columns {
		out[c.Name] = c.Kind
	}
	return out
}
