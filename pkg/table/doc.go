// Package table defines the in-memory tabular structure shared by every
// pipeline stage.
//
// # Columns and Cells
//
// Each column carries a DType and a slice of cells:
//
//	String   -> string
//	Int64    -> int64
//	Float64  -> float64
//	Date     -> time.Time at midnight UTC
//
// A nil cell is a null. Column.Check reports cells whose Go type does not
// match the column type.
//
// # Building Tables
//
//	t, err := table.FromColumns(
//	    &table.Column{Name: "date", Type: table.Date, Values: []any{d1, d2}},
//	    &table.Column{Name: "label", Type: table.Int64, Values: []any{int64(1), nil}},
//	)
//
// # Immutability
//
// Clone, Head, Take, Filter and Rename always return new tables. Pipeline
// stages build on these so that a stage never mutates its input.
//
// # Duplicate Detection
//
// RowKey encodes every cell with its type so that the string "1" and the
// integer 1 never collide. Two rows are exact duplicates iff their keys are
// equal.
package table
