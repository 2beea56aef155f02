package table_test

import (
	"fmt"
	"time"

	"github.com/jittakal/sentimentetl/pkg/table"
)

func ExampleFromColumns() {
	d := time.Date(2008, 8, 8, 0, 0, 0, 0, time.UTC)
	t, err := table.FromColumns(
		&table.Column{Name: "date", Type: table.Date, Values: []any{d, d}},
		&table.Column{Name: "label", Type: table.Int64, Values: []any{int64(1), nil}},
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	rows, cols := t.Shape()
	fmt.Println(rows, cols, t.NullCount())
	for i := 0; i < rows; i++ {
		fmt.Printf("%s %q\n", table.FormatValue(t.Row(i)[0]), table.FormatValue(t.Row(i)[1]))
	}
	// Output:
	// 2 2 1
	// 2008-08-08 "1"
	// 2008-08-08 ""
}

func ExampleTable_RowKey() {
	t, _ := table.FromColumns(&table.Column{Name: "v", Values: []any{int64(1), "1", int64(1)}})
	fmt.Println(t.RowKey(0) == t.RowKey(1))
	fmt.Println(t.RowKey(0) == t.RowKey(2))
	// Output:
	// false
	// true
}
