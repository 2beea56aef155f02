package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DType identifies the logical type of a column.
type DType string

const (
	String  DType = "string"
	Int64   DType = "int64"
	Float64 DType = "float64"
	Date    DType = "date"
)

// DateLayout is the canonical text form of a Date cell.
const DateLayout = "2006-01-02"

// Column is a named, typed sequence of cells.
type Column struct {
	Name   string
	Type   DType
	Values []any
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	return len(c.Values)
}

// NullCount returns the number of nil cells.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	values := make([]any, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Type: c.Type, Values: values}
}

// Check reports the first cell whose Go type does not match the column type.
func (c *Column) Check() error {
	for i, v := range c.Values {
		if v == nil {
			continue
		}
		if !matches(c.Type, v) {
			return fmt.Errorf("column %q row %d: value %v (%T) is not %s", c.Name, i, v, v, c.Type)
		}
	}
	return nil
}

func matches(dt DType, v any) bool {
	switch dt {
	case String:
		_, ok := v.(string)
		return ok
	case Int64:
		_, ok := v.(int64)
		return ok
	case Float64:
		_, ok := v.(float64)
		return ok
	case Date:
		_, ok := v.(time.Time)
		return ok
	default:
		return false
	}
}

// Table is an ordered collection of equal-length columns.
type Table struct {
	columns []*Column
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// FromColumns builds a table from columns, which must have unique names and
// equal lengths. The columns are used as given, not copied.
func FromColumns(columns ...*Column) (*Table, error) {
	t := New()
	for _, c := range columns {
		if _, exists := t.Column(c.Name); exists {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		if err := t.SetColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// SetColumn replaces the column with the same name, keeping its position, or
// appends it when no such column exists.
func (t *Table) SetColumn(c *Column) error {
	if len(t.columns) > 0 && c.Len() != t.NumRows() {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name, c.Len(), t.NumRows())
	}
	for i, existing := range t.columns {
		if existing.Name == c.Name {
			t.columns[i] = c
			return nil
		}
	}
	t.columns = append(t.columns, c)
	return nil
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Columns returns the table's columns in order.
func (t *Table) Columns() []*Column {
	return t.columns
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.columns)
}

// Shape returns (rows, columns).
func (t *Table) Shape() (int, int) {
	return t.NumRows(), t.NumCols()
}

// DTypes maps column names to their types.
func (t *Table) DTypes() map[string]DType {
	types := make(map[string]DType, len(t.columns))
	for _, c := range t.columns {
		types[c.Name] = c.Type
	}
	return types
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{columns: make([]*Column, len(t.columns))}
	for i, c := range t.columns {
		out.columns[i] = c.Clone()
	}
	return out
}

// Head returns a copy holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > t.NumRows() {
		n = t.NumRows()
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return t.Take(indices)
}

// Take returns a new table holding the given rows in the given order.
func (t *Table) Take(indices []int) *Table {
	out := &Table{columns: make([]*Column, len(t.columns))}
	for j, c := range t.columns {
		values := make([]any, len(indices))
		for k, i := range indices {
			values[k] = c.Values[i]
		}
		out.columns[j] = &Column{Name: c.Name, Type: c.Type, Values: values}
	}
	return out
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	indices := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	return t.Take(indices)
}

// Rename returns a copy whose column names are mapped through fn.
// Two columns mapping to the same name is an error.
func (t *Table) Rename(fn func(string) string) (*Table, error) {
	out := t.Clone()
	seen := make(map[string]string, len(out.columns))
	for _, c := range out.columns {
		name := fn(c.Name)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("columns %q and %q both map to %q", prev, c.Name, name)
		}
		seen[name] = c.Name
		c.Name = name
	}
	return out, nil
}

// NullCounts maps column names to their null counts.
func (t *Table) NullCounts() map[string]int {
	counts := make(map[string]int, len(t.columns))
	for _, c := range t.columns {
		counts[c.Name] = c.NullCount()
	}
	return counts
}

// NullCount returns the total number of null cells.
func (t *Table) NullCount() int {
	total := 0
	for _, c := range t.columns {
		total += c.NullCount()
	}
	return total
}

// Size returns the number of cells.
func (t *Table) Size() int {
	return t.NumRows() * t.NumCols()
}

// EstimatedBytes approximates the in-memory footprint of the cell data.
func (t *Table) EstimatedBytes() int64 {
	var total int64
	for _, c := range t.columns {
		for _, v := range c.Values {
			switch x := v.(type) {
			case string:
				total += int64(len(x)) + 16
			case time.Time:
				total += 24
			case nil:
				total += 16
			default:
				total += 8 + 16
			}
		}
	}
	return total
}

// Equal reports whether both tables have the same columns, types and cells.
func (t *Table) Equal(other *Table) bool {
	if t.NumCols() != other.NumCols() || t.NumRows() != other.NumRows() {
		return false
	}
	for j, c := range t.columns {
		o := other.columns[j]
		if c.Name != o.Name || c.Type != o.Type {
			return false
		}
		for i := range c.Values {
			if !CellEqual(c.Values[i], o.Values[i]) {
				return false
			}
		}
	}
	return true
}

// CellEqual compares two cells; nil equals only nil.
func CellEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

// RowKey returns a string identifying the full contents of row i. Two rows
// have the same key only if every cell has the same type and value.
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for _, c := range t.columns {
		v := c.Values[i]
		switch x := v.(type) {
		case nil:
			b.WriteString("n|")
		case string:
			b.WriteString("s")
			b.WriteString(strconv.Itoa(len(x)))
			b.WriteByte(':')
			b.WriteString(x)
		case int64:
			b.WriteString("i")
			b.WriteString(strconv.FormatInt(x, 10))
		case float64:
			b.WriteString("f")
			b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		case time.Time:
			b.WriteString("d")
			b.WriteString(x.UTC().Format(time.RFC3339Nano))
		default:
			fmt.Fprintf(&b, "x%v", x)
		}
		b.WriteByte('|')
	}
	return b.String()
}

// FormatValue renders a cell as text. Nulls render as the empty string and
// dates as YYYY-MM-DD.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(DateLayout)
	default:
		return fmt.Sprint(x)
	}
}

// DateOf truncates t to midnight UTC, the canonical form of a Date cell.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
