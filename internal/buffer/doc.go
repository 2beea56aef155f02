// Package buffer provides thread-safe buffering for table rows.
//
// This package implements in-memory buffering with row count and size limits,
// designed for batching rows before a bulk write such as a multi-row INSERT
// or a Parquet row group.
//
// # RowBuffer
//
//	buf := buffer.New(maxSizeBytes, maxRows)
//
//	for i := 0; i < t.NumRows(); i++ {
//	    if err := buf.Add(t.Row(i)); errors.Is(err, errors.ErrBufferFull) {
//	        write(buf.Drain())
//	    }
//	}
//
// # Batching a Table
//
// ForEachBatch wraps the loop above, including the final partial batch:
//
//	err := buffer.ForEachBatch(t, buffer.New(0, 500), func(batch [][]any) error {
//	    return insert(tx, batch)
//	})
//
// # Thread Safety
//
// All buffer operations are thread-safe using read-write mutexes:
//
//   - Add(), Drain(), Reset() use write locks
//   - Stats(), IsEmpty() use read locks
//
// # Limits
//
// A zero size limit disables size-based flushing. A row larger than the size
// limit is still accepted into an empty buffer so that batching always makes
// progress.
package buffer
