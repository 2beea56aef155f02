// Package buffer implements row buffering for batched writes.
package buffer

import (
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/buffer"
	"github.com/jittakal/sentimentetl/pkg/table"
)

// Ensure implementation satisfies interface at compile time.
var _ buffer.Buffer = (*RowBuffer)(nil)

// RowBuffer buffers table rows for a single bulk write.
// It provides thread-safe buffering with size limits and row count limits.
type RowBuffer struct {
	rows         [][]any
	maxSizeBytes int64
	maxRows      int
	currentSize  int64
	mu           sync.RWMutex
}

// New creates a new row buffer. A maxSizeBytes of zero disables the size limit.
func New(maxSizeBytes int64, maxRows int) *RowBuffer {
	if maxRows <= 0 {
		maxRows = 1
	}
	return &RowBuffer{
		rows:         make([][]any, 0, maxRows),
		maxSizeBytes: maxSizeBytes,
		maxRows:      maxRows,
	}
}

// Add adds a row to the buffer.
func (b *RowBuffer) Add(row []any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rowSize := estimateSize(row)

	if len(b.rows) >= b.maxRows {
		return fmt.Errorf("%w: max rows (%d) reached", errors.ErrBufferFull, b.maxRows)
	}

	// An oversized row is still accepted into an empty buffer.
	if b.maxSizeBytes > 0 && len(b.rows) > 0 && b.currentSize+rowSize > b.maxSizeBytes {
		return fmt.Errorf("%w: max size (%d bytes) would be exceeded", errors.ErrBufferFull, b.maxSizeBytes)
	}

	b.rows = append(b.rows, row)
	b.currentSize += rowSize
	return nil
}

// Drain removes and returns all rows from the buffer.
// The returned slice is owned by the caller.
func (b *RowBuffer) Drain() [][]any {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows := b.rows
	b.reset()
	return rows
}

// Stats returns current buffer statistics.
func (b *RowBuffer) Stats() buffer.Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return buffer.Stats{
		RowCount:  len(b.rows),
		SizeBytes: b.currentSize,
	}
}

// IsEmpty returns true if the buffer is empty.
func (b *RowBuffer) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rows) == 0
}

// Reset clears the buffer and resets all statistics.
func (b *RowBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

func (b *RowBuffer) reset() {
	b.rows = make([][]any, 0, b.maxRows)
	b.currentSize = 0
}

// estimateSize estimates the size of a row in bytes.
func estimateSize(row []any) int64 {
	var size int64
	for _, v := range row {
		switch x := v.(type) {
		case string:
			size += int64(len(x))
		case time.Time:
			size += 12
		case nil:
			size++
		default:
			size += 8
		}
	}
	return size
}

// FlushFunc receives one drained batch of rows.
type FlushFunc func(batch [][]any) error

// ForEachBatch streams the rows of t through buf, calling flush whenever the
// buffer fills and once more for the remainder.
func ForEachBatch(t *table.Table, buf buffer.Buffer, flush FlushFunc) error {
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		err := buf.Add(row)
		if stderrors.Is(err, errors.ErrBufferFull) {
			if err := flush(buf.Drain()); err != nil {
				return err
			}
			err = buf.Add(row)
		}
		if err != nil {
			return fmt.Errorf("buffer row %d: %w", i, err)
		}
	}
	if !buf.IsEmpty() {
		return flush(buf.Drain())
	}
	return nil
}
