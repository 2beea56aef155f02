package table

import (
	"strings"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func singleColumn(dt DType, values ...any) *Table {
	t, err := FromColumns(&Column{Name: "c", Type: dt, Values: values})
	if err != nil {
		panic(err)
	}
	return t
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := FromColumns(
		&Column{Name: "date", Type: Date, Values: []any{day(2008, 8, 8), day(2008, 8, 11), nil}},
		&Column{Name: "label", Type: Int64, Values: []any{int64(0), int64(1), nil}},
		&Column{Name: "top1", Type: String, Values: []any{"markets rally", "", nil}},
	)
	if err != nil {
		t.Fatalf("FromColumns() error = %v", err)
	}
	return tbl
}

func TestRowKey_TypeTagged(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		same bool
	}{
		{name: "int vs string", a: int64(1), b: "1", same: false},
		{name: "nil vs empty string", a: nil, b: "", same: false},
		{name: "float vs int", a: float64(1), b: int64(1), same: false},
		{name: "date vs date string", a: day(2008, 8, 8), b: "2008-08-08", same: false},
		{name: "equal strings", a: "x", b: "x", same: true},
		{name: "equal ints", a: int64(7), b: int64(7), same: true},
		{name: "nil vs nil", a: nil, b: nil, same: true},
		{name: "date in other zone", a: day(2008, 8, 8), b: day(2008, 8, 8).In(time.FixedZone("X", 3600)), same: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := FromColumns(&Column{Name: "c", Values: []any{tt.a, tt.b}})
			if err != nil {
				t.Fatalf("FromColumns() error = %v", err)
			}
			got := tbl.RowKey(0) == tbl.RowKey(1)
			if got != tt.same {
				t.Errorf("RowKey equal = %v, want %v (%q vs %q)", got, tt.same, tbl.RowKey(0), tbl.RowKey(1))
			}
		})
	}
}

func TestRowKey_StringBoundaries(t *testing.T) {
	a, err := FromColumns(
		&Column{Name: "x", Type: String, Values: []any{"a|"}},
		&Column{Name: "y", Type: String, Values: []any{"b"}},
	)
	if err != nil {
		t.Fatalf("FromColumns() error = %v", err)
	}
	b, err := FromColumns(
		&Column{Name: "x", Type: String, Values: []any{"a"}},
		&Column{Name: "y", Type: String, Values: []any{"|b"}},
	)
	if err != nil {
		t.Fatalf("FromColumns() error = %v", err)
	}
	if a.RowKey(0) == b.RowKey(0) {
		t.Errorf("rows with shifted separators share key %q", a.RowKey(0))
	}
}

func TestCellEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil nil", nil, nil, true},
		{"nil empty", nil, "", false},
		{"empty nil", "", nil, false},
		{"int string", int64(1), "1", false},
		{"int float", int64(1), float64(1), false},
		{"same date other zone", day(2008, 8, 8), day(2008, 8, 8).In(time.FixedZone("X", -3600)), true},
		{"date string", day(2008, 8, 8), "2008-08-08", false},
		{"floats", 0.5, 0.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CellEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("CellEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTable_Equal(t *testing.T) {
	base := sampleTable(t)

	renamed, err := base.Rename(strings.ToUpper)
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	changedCell := base.Clone()
	changedCell.Columns()[1].Values[2] = int64(0)
	retyped := base.Clone()
	retyped.Columns()[2].Type = Int64

	tests := []struct {
		name  string
		other *Table
		want  bool
	}{
		{"clone", base.Clone(), true},
		{"renamed", renamed, false},
		{"changed cell", changedCell, false},
		{"retyped", retyped, false},
		{"fewer rows", base.Head(2), false},
		{"empty", New(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTable_CloneIsolation(t *testing.T) {
	orig := sampleTable(t)
	clone := orig.Clone()

	clone.Columns()[2].Values[0] = "changed"
	clone.Columns()[0].Name = "renamed"
	clone.Columns()[1].Type = Float64

	col, ok := orig.Column("top1")
	if !ok {
		t.Fatal("original lost column top1")
	}
	if col.Values[0] != "markets rally" {
		t.Errorf("original cell = %v, want %q", col.Values[0], "markets rally")
	}
	if orig.Columns()[0].Name != "date" {
		t.Errorf("original name = %q, want date", orig.Columns()[0].Name)
	}
	if orig.Columns()[1].Type != Int64 {
		t.Errorf("original type = %s, want int64", orig.Columns()[1].Type)
	}
}

func TestTable_TakeAndFilter(t *testing.T) {
	tbl := sampleTable(t)

	taken := tbl.Take([]int{2, 0, 0})
	if rows := taken.NumRows(); rows != 3 {
		t.Fatalf("Take rows = %d, want 3", rows)
	}
	label, _ := taken.Column("label")
	want := []any{nil, int64(0), int64(0)}
	for i := range want {
		if !CellEqual(label.Values[i], want[i]) {
			t.Errorf("Take label[%d] = %v, want %v", i, label.Values[i], want[i])
		}
	}

	taken.Columns()[1].Values[1] = int64(9)
	if orig, _ := tbl.Column("label"); orig.Values[0] != int64(0) {
		t.Errorf("Take shares storage with source: %v", orig.Values[0])
	}

	kept := tbl.Filter(func(row int) bool {
		c, _ := tbl.Column("label")
		return c.Values[row] != nil
	})
	if rows, cols := kept.Shape(); rows != 2 || cols != 3 {
		t.Errorf("Filter shape = (%d, %d), want (2, 3)", rows, cols)
	}

	none := tbl.Filter(func(int) bool { return false })
	if rows, cols := none.Shape(); rows != 0 || cols != 3 {
		t.Errorf("empty Filter shape = (%d, %d), want (0, 3)", rows, cols)
	}
}

func TestTable_Head(t *testing.T) {
	tbl := sampleTable(t)
	tests := []struct {
		n    int
		want int
	}{
		{-1, 0},
		{0, 0},
		{2, 2},
		{10, 3},
	}
	for _, tt := range tests {
		if got := tbl.Head(tt.n).NumRows(); got != tt.want {
			t.Errorf("Head(%d) rows = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestTable_Rename(t *testing.T) {
	tbl := sampleTable(t)

	out, err := tbl.Rename(func(s string) string { return "col_" + s })
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if got := strings.Join(out.ColumnNames(), ","); got != "col_date,col_label,col_top1" {
		t.Errorf("renamed columns = %s", got)
	}
	if got := strings.Join(tbl.ColumnNames(), ","); got != "date,label,top1" {
		t.Errorf("source columns changed to %s", got)
	}

	_, err = tbl.Rename(func(string) string { return "same" })
	if err == nil {
		t.Fatal("Rename() with colliding names returned nil error")
	}
	if !strings.Contains(err.Error(), `"same"`) {
		t.Errorf("Rename() error = %v, want it to name the target", err)
	}
}

func TestFromColumns_Errors(t *testing.T) {
	tests := []struct {
		name    string
		columns []*Column
	}{
		{
			name: "mismatched lengths",
			columns: []*Column{
				{Name: "a", Type: Int64, Values: []any{int64(1), int64(2)}},
				{Name: "b", Type: Int64, Values: []any{int64(1)}},
			},
		},
		{
			name: "duplicate names",
			columns: []*Column{
				{Name: "a", Type: Int64, Values: []any{int64(1)}},
				{Name: "a", Type: String, Values: []any{"x"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromColumns(tt.columns...); err == nil {
				t.Error("FromColumns() error = nil, want error")
			}
		})
	}
}

func TestTable_NullCounts(t *testing.T) {
	tbl := sampleTable(t)
	if got := tbl.NullCount(); got != 3 {
		t.Errorf("NullCount() = %d, want 3", got)
	}
	counts := tbl.NullCounts()
	for _, name := range []string{"date", "label", "top1"} {
		if counts[name] != 1 {
			t.Errorf("NullCounts()[%s] = %d, want 1", name, counts[name])
		}
	}
	if got := tbl.Size(); got != 9 {
		t.Errorf("Size() = %d, want 9", got)
	}
}

func TestColumn_Check(t *testing.T) {
	tests := []struct {
		name    string
		tbl     *Table
		wantErr bool
	}{
		{"ints with null", singleColumn(Int64, int64(1), nil), false},
		{"string in int column", singleColumn(Int64, int64(1), "2"), true},
		{"int in float column", singleColumn(Float64, 1.5, int64(2)), true},
		{"dates", singleColumn(Date, day(2008, 8, 8)), false},
		{"string in date column", singleColumn(Date, "2008-08-08"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tbl.Columns()[0].Check()
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{int64(-3), "-3"},
		{0.25, "0.25"},
		{day(2008, 8, 8), "2008-08-08"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
