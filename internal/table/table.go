// Package table provides the in-memory columnar table that transformations
// operate on. Tables are column-major and treated as immutable: operations
// return new tables and never modify their receiver.
package table

import (
	"fmt"
	"sort"
	"strconv"
)

// DType is the inferred type of a column.
type DType string

// Column dtypes.
const (
	DTypeString DType = "string"
	DTypeInt    DType = "int"
	DTypeFloat  DType = "float"
	DTypeBool   DType = "bool"
)

// IsNumeric reports whether the dtype supports arithmetic.
func (d DType) IsNumeric() bool {
	return d == DTypeInt || d == DTypeFloat
}

// Cell is a single value. Null marks a missing value; Value is then empty.
type Cell struct {
	Value string
	Null  bool
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Type  DType
	Cells []Cell
}

// Table is an ordered collection of equal-length columns.
type Table struct {
	cols   []Column
	byName map[string]int
}

// New builds a table from columns. All columns must have the same length
// and unique names.
func New(cols []Column) (*Table, error) {
	byName := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name: %s", c.Name)
		}
		if len(c.Cells) != len(cols[0].Cells) {
			return nil, fmt.Errorf("column %s has %d cells, expected %d", c.Name, len(c.Cells), len(cols[0].Cells))
		}
		byName[c.Name] = i
	}
	return &Table{cols: cols, byName: byName}, nil
}

// Empty returns a zero-row, zero-column table.
func Empty() *Table {
	return &Table{byName: map[string]int{}}
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0].Cells)
}

// NumColumns returns the column count.
func (t *Table) NumColumns() int {
	return len(t.cols)
}

// ColumnNames returns column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return &t.cols[i], true
}

// ColumnAt returns the column at index i.
func (t *Table) ColumnAt(i int) *Column {
	return &t.cols[i]
}

// Schema maps column name to dtype string.
func (t *Table) Schema() map[string]string {
	schema := make(map[string]string, len(t.cols))
	for _, c := range t.cols {
		schema[c.Name] = string(c.Type)
	}
	return schema
}

// IsMissing reports whether the cell at (row, column name) is null.
// Unknown columns report false.
func (t *Table) IsMissing(row int, name string) bool {
	i, ok := t.byName[name]
	if !ok {
		return false
	}
	return t.cols[i].Cells[row].Null
}

// MissingInRow counts null cells in a row.
func (t *Table) MissingInRow(row int) int {
	n := 0
	for i := range t.cols {
		if t.cols[i].Cells[row].Null {
			n++
		}
	}
	return n
}

// Float parses the cell in the named column at row as a float. The second
// return is false for null cells, unknown columns, and unparseable values.
func (t *Table) Float(row int, name string) (float64, bool) {
	i, ok := t.byName[name]
	if !ok {
		return 0, false
	}
	cell := t.cols[i].Cells[row]
	if cell.Null {
		return 0, false
	}
	f, err := strconv.ParseFloat(cell.Value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// TextColumnNames returns names of string-typed columns, in table order.
func (t *Table) TextColumnNames() []string {
	var names []string
	for _, c := range t.cols {
		if c.Type == DTypeString {
			names = append(names, c.Name)
		}
	}
	return names
}

// NumericColumnNames returns names of int/float columns, in table order.
func (t *Table) NumericColumnNames() []string {
	var names []string
	for _, c := range t.cols {
		if c.Type.IsNumeric() {
			names = append(names, c.Name)
		}
	}
	return names
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		cols[i] = Column{Name: c.Name, Type: c.Type, Cells: cells}
	}
	byName := make(map[string]int, len(t.byName))
	for k, v := range t.byName {
		byName[k] = v
	}
	return &Table{cols: cols, byName: byName}
}

// Head returns a deep copy of the first n rows. n larger than the row
// count returns a full copy.
func (t *Table) Head(n int) *Table {
	if n > t.NumRows() {
		n = t.NumRows()
	}
	if n < 0 {
		n = 0
	}
	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		cells := make([]Cell, n)
		copy(cells, c.Cells[:n])
		cols[i] = Column{Name: c.Name, Type: c.Type, Cells: cells}
	}
	out, _ := New(cols)
	return out
}

// SelectRows returns a new table containing the rows where keep[i] is true.
// len(keep) must equal the row count.
func (t *Table) SelectRows(keep []bool) (*Table, error) {
	if len(keep) != t.NumRows() {
		return nil, fmt.Errorf("keep mask has %d entries, expected %d", len(keep), t.NumRows())
	}
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		cells := make([]Cell, 0, n)
		for row, k := range keep {
			if k {
				cells = append(cells, c.Cells[row])
			}
		}
		cols[i] = Column{Name: c.Name, Type: c.Type, Cells: cells}
	}
	return New(cols)
}

// SortedColumnNames returns column names sorted lexically. Used for
// deterministic output, not for table layout.
func (t *Table) SortedColumnNames() []string {
	names := t.ColumnNames()
	sort.Strings(names)
	return names
}
