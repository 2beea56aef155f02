// Package buffer defines interfaces for row batching.
//
// Buffers are used to group table rows before a bulk write, such as a
// multi-row INSERT or a Parquet row group.
package buffer

// Stats describes the rows currently held by a buffer.
type Stats struct {
	RowCount  int
	SizeBytes int64
}

// Buffer accumulates rows until drained.
// All implementations must be thread-safe.
type Buffer interface {
	// Add adds a row to the buffer.
	// Returns an error if the buffer is full or capacity would be exceeded.
	Add(row []any) error

	// Drain removes and returns all rows from the buffer.
	// The buffer is reset after draining.
	Drain() [][]any

	// Stats returns current buffer statistics without modifying the buffer.
	Stats() Stats

	// IsEmpty returns true if the buffer contains no rows.
	IsEmpty() bool

	// Reset clears the buffer and resets all statistics.
	Reset()
}
