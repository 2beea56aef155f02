package buffer_test

import (
	"fmt"

	"github.com/jittakal/sentimentetl/internal/buffer"
	"github.com/jittakal/sentimentetl/pkg/table"
)

func Example_rowBuffer() {
	// Create a row buffer with no size limit and 10 max rows
	buf := buffer.New(0, 10)

	for i := 0; i < 5; i++ {
		if err := buf.Add([]any{int64(i), fmt.Sprintf("headline %d", i)}); err != nil {
			fmt.Println("Error adding row:", err)
			return
		}
	}

	stats := buf.Stats()
	fmt.Printf("Rows buffered: %d\n", stats.RowCount)
	fmt.Printf("Buffer is empty: %v\n", buf.IsEmpty())

	rows := buf.Drain()
	fmt.Printf("Drained %d rows\n", len(rows))
	fmt.Printf("Buffer is empty after drain: %v\n", buf.IsEmpty())

	// Output:
	// Rows buffered: 5
	// Buffer is empty: false
	// Drained 5 rows
	// Buffer is empty after drain: true
}

func ExampleForEachBatch() {
	values := make([]any, 7)
	for i := range values {
		values[i] = int64(i)
	}
	t, _ := table.FromColumns(&table.Column{Name: "label", Type: table.Int64, Values: values})

	_ = buffer.ForEachBatch(t, buffer.New(0, 3), func(batch [][]any) error {
		fmt.Printf("batch of %d\n", len(batch))
		return nil
	})

	// Output:
	// batch of 3
	// batch of 3
	// batch of 1
}
