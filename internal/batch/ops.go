package batch

import (
	"fmt"
	"strings"
)

// Concat stacks batches row-wise. All batches must share the same
// column set (order-independent); the result's column order follows
// the first non-empty batch. Used by compose_directory (§4.3) and by
// Stream2Local's "update" mode merge (§4.4).
func Concat(batches ...*Batch) (*Batch, error) {
	var base *Batch
	for _, b := range batches {
		if b != nil && !b.Empty() {
			base = b
			break
		}
	}
	if base == nil {
		return New(), nil
	}
	names := base.ColumnNames()
	out := New()
	columns := make(map[string][]Value, len(names))
	kinds := make(map[string]Kind, len(names))
	for _, name := range names {
		kinds[name] = base.Column(name).Kind
	}
	for _, b := range batches {
		if b == nil || b.Empty() {
			continue
		}
		if len(b.ColumnNames()) != len(names) {
			return nil, fmt.Errorf("batch: concat column count mismatch (%d vs %d)", len(b.ColumnNames()), len(names))
		}
		for _, name := range names {
			col := b.Column(name)
			if col == nil {
				return nil, fmt.Errorf("batch: concat missing column %q", name)
			}
			columns[name] = append(columns[name], col.Values...)
		}
	}
	for _, name := range names {
		if err := out.AddColumn(name, kinds[name], columns[name]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DropDuplicates removes rows that repeat on subset (nil subset means
// "compare every column"). keepLast decides which occurrence survives.
// Stream2Local keeps the first in all three modes; in update mode the
// existing rows are concatenated before the incoming ones, so the
// existing row wins a key collision.
func (b *Batch) DropDuplicates(subset []string, keepLast bool) (*Batch, error) {
	if b.Empty() {
		return b, nil
	}
	keys := subset
	if keys == nil {
		keys = b.ColumnNames()
	}
	cols := make([]*Column, len(keys))
	for i, k := range keys {
		c := b.Column(k)
		if c == nil {
			return nil, fmt.Errorf("batch: drop_duplicates subset column %q not found", k)
		}
		cols[i] = c
	}

	keyOf := func(row int) string {
		var sb strings.Builder
		for _, c := range cols {
			v := c.Values[row]
			if v.Null {
				sb.WriteString("\x00N\x01")
				continue
			}
			fmt.Fprintf(&sb, "%v\x01", v.Any())
		}
		return sb.String()
	}

	seen := make(map[string]int, b.rows)
	order := make([]string, 0, b.rows)
	keep := make(map[string]int, b.rows)
	for i := 0; i < b.rows; i++ {
		k := keyOf(i)
		if _, ok := seen[k]; !ok {
			order = append(order, k)
		}
		seen[k] = i
		if keepLast {
			keep[k] = i
		} else if _, ok := keep[k]; !ok {
			keep[k] = i
		}
	}

	rowIdx := make([]int, 0, len(order))
	for _, k := range order {
		rowIdx = append(rowIdx, keep[k])
	}
	return b.selectRows(rowIdx), nil
}

// DropNA drops rows that are null in any of keys.
func (b *Batch) DropNA(keys []string) (*Batch, error) {
	if b.Empty() {
		return b, nil
	}
	cols := make([]*Column, len(keys))
	for i, k := range keys {
		c := b.Column(k)
		if c == nil {
			return nil, fmt.Errorf("batch: drop_na column %q not found", k)
		}
		cols[i] = c
	}
	rowIdx := make([]int, 0, b.rows)
	for i := 0; i < b.rows; i++ {
		keep := true
		for _, c := range cols {
			if c.Values[i].Null {
				keep = false
				break
			}
		}
		if keep {
			rowIdx = append(rowIdx, i)
		}
	}
	return b.selectRows(rowIdx), nil
}

func (b *Batch) selectRows(rowIdx []int) *Batch {
	out := New()
	out.rows = len(rowIdx)
	for _, c := range b.columns {
		values := make([]Value, len(rowIdx))
		for i, r := range rowIdx {
			values[i] = c.Values[r]
		}
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, &Column{Name: c.Name, Kind: c.Kind, Values: values})
	}
	return out
}

// MergeLeft performs a left join of b with other on key, copying every
// column of other (except key) into b — used by post-process
// MergeStatic (§4.2). Rows in b with no match get null columns.
func (b *Batch) MergeLeft(other *Batch, key string) (*Batch, error) {
	if b.Empty() {
		return b, nil
	}
	leftKey := b.Column(key)
	rightKey := other.Column(key)
	if leftKey == nil || rightKey == nil {
		return nil, fmt.Errorf("batch: merge key %q missing from left or right", key)
	}
	index := make(map[string]int, other.rows)
	keyStr := func(v Value) string {
		if v.Null {
			return "\x00N\x01"
		}
		return fmt.Sprintf("%v", v.Any())
	}
	for i := 0; i < other.rows; i++ {
		index[keyStr(rightKey.Values[i])] = i
	}

	out := b.Clone()
	for _, c := range other.columns {
		if c.Name == key {
			continue
		}
		values := make([]Value, b.rows)
		for i := 0; i < b.rows; i++ {
			if ri, ok := index[keyStr(leftKey.Values[i])]; ok {
				values[i] = c.Values[ri]
			} else {
				values[i] = NullValue(c.Kind)
			}
		}
		if out.HasColumn(c.Name) {
			out.columns[out.index[c.Name]] = &Column{Name: c.Name, Kind: c.Kind, Values: values}
		} else {
			if err := out.AddColumn(c.Name, c.Kind, values); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
