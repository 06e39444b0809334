// pkg/model/table.go
package model

import "fmt"

// Table is an in-memory dataset of named columns with rows aligned by position.
// Index holds the original label of every row so labels survive row removal.
type Table struct {
	Columns []Column                 // Ordered column definitions
	Rows    []map[string]interface{} // Row values keyed by column name, nil means missing
	Index   []int                    // Original row label for each entry in Rows
}

// NewTable creates an empty table with the given column names
func NewTable(columns ...string) *Table {
	t := &Table{
		Columns: make([]Column, 0, len(columns)),
		Rows:    make([]map[string]interface{}, 0),
		Index:   make([]int, 0),
	}
	for _, name := range columns {
		t.Columns = append(t.Columns, Column{Name: name, Kind: KindUnknown})
	}
	return t
}

// AppendRow adds a row; the row label is the next sequential position
func (t *Table) AppendRow(values map[string]interface{}) {
	label := 0
	if n := len(t.Index); n > 0 {
		label = t.Index[n-1] + 1
	}
	t.Rows = append(t.Rows, values)
	t.Index = append(t.Index, label)
}

// AppendValues adds a row from positional values matching the column order
func (t *Table) AppendValues(values ...interface{}) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("expected %d values, got %d", len(t.Columns), len(values))
	}
	row := make(map[string]interface{}, len(values))
	for i, col := range t.Columns {
		row[col.Name] = values[i]
	}
	t.AppendRow(row)
	return nil
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Shape returns the (rows, columns) dimensions
func (t *Table) Shape() (int, int) {
	if t == nil {
		return 0, 0
	}
	return len(t.Rows), len(t.Columns)
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// HasColumn reports whether the table defines the named column
func (t *Table) HasColumn(name string) bool {
	return t.GetColumnByName(name) != nil
}

// GetColumnByName returns a column by exact name
// Returns nil if column not found
func (t *Table) GetColumnByName(name string) *Column {
	if t == nil {
		return nil
	}
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Values returns a copy of the named column's values in row order
func (t *Table) Values(name string) []interface{} {
	values := make([]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[name]
	}
	return values
}

// Label returns the original label of the row at position i
func (t *Table) Label(i int) int {
	if i < len(t.Index) {
		return t.Index[i]
	}
	return i
}

// DropRows removes every row for which drop returns true and returns the count removed
func (t *Table) DropRows(drop func(row map[string]interface{}) bool) int {
	keptRows := t.Rows[:0]
	keptIndex := make([]int, 0, len(t.Rows))
	removed := 0
	for i, row := range t.Rows {
		if drop(row) {
			removed++
			continue
		}
		keptRows = append(keptRows, row)
		keptIndex = append(keptIndex, t.Label(i))
	}
	// Clear the tail so dropped rows can be collected
	for i := len(keptRows); i < len(t.Rows); i++ {
		t.Rows[i] = nil
	}
	t.Rows = keptRows
	t.Index = keptIndex
	return removed
}

// Head returns a shallow copy of the first n rows
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	head := &Table{
		Columns: append([]Column(nil), t.Columns...),
		Rows:    append([]map[string]interface{}(nil), t.Rows[:n]...),
		Index:   make([]int, n),
	}
	for i := 0; i < n; i++ {
		head.Index[i] = t.Label(i)
	}
	return head
}

// Clone returns a deep copy of the table rows and column definitions
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: make([]Column, len(t.Columns)),
		Rows:    make([]map[string]interface{}, len(t.Rows)),
		Index:   append([]int(nil), t.Index...),
	}
	for i, col := range t.Columns {
		col.Categories = append([]string(nil), col.Categories...)
		out.Columns[i] = col
	}
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		cp := make(map[string]interface{}, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}
