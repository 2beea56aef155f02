// Package sqlstore writes tables to SQLite and reads them back with queries.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jittakal/sentimentetl/internal/buffer"
	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/encoder"
	"github.com/jittakal/sentimentetl/pkg/table"
)

const driverName = "sqlite"

const defaultBatchRows = 500

// maxVariables is SQLite's limit on bound parameters per statement.
const maxVariables = 32766

var _ encoder.Encoder = (*Writer)(nil)

// Writer replaces one table in a SQLite database file.
type Writer struct {
	tableName string
	batchRows int
}

// NewWriter creates a writer for tableName inserting batchRows rows per
// statement.
func NewWriter(tableName string, batchRows int) *Writer {
	if batchRows <= 0 {
		batchRows = defaultBatchRows
	}
	return &Writer{tableName: tableName, batchRows: batchRows}
}

// TableName returns the target table name.
func (w *Writer) TableName() string {
	return w.tableName
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlType(dt table.DType) string {
	switch dt {
	case table.Int64:
		return "INTEGER"
	case table.Float64:
		return "REAL"
	case table.Date:
		return "DATE"
	default:
		return "TEXT"
	}
}

func sqlValue(v any) any {
	if d, ok := v.(time.Time); ok {
		return d.Format(table.DateLayout)
	}
	return v
}

// Encode writes t with a background context.
func (w *Writer) Encode(filePath string, t *table.Table) (*encoder.FileStats, error) {
	return w.EncodeContext(context.Background(), filePath, t)
}

// EncodeContext drops and recreates the table, inserts every row inside one
// transaction and indexes the date and label columns when present. The
// connection is closed before returning.
func (w *Writer) EncodeContext(ctx context.Context, filePath string, t *table.Table) (*encoder.FileStats, error) {
	if t.NumCols() == 0 {
		return nil, errors.ErrNoData
	}

	db, err := sql.Open(driverName, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := w.createTable(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := w.insertRows(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := w.createIndexes(ctx, tx, t); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database: %w", err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return &encoder.FileStats{
		Format:      encoder.FormatSQLite,
		Path:        filePath,
		RecordCount: t.NumRows(),
		SizeBytes:   info.Size(),
		WrittenAt:   time.Now(),
	}, nil
}

func (w *Writer) createTable(ctx context.Context, tx *sql.Tx, t *table.Table) error {
	defs := make([]string, 0, t.NumCols())
	for _, c := range t.Columns() {
		defs = append(defs, quoteIdent(c.Name)+" "+sqlType(c.Type))
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(w.tableName)); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(w.tableName), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (w *Writer) insertRows(ctx context.Context, tx *sql.Tx, t *table.Table) error {
	cols := make([]string, 0, t.NumCols())
	for _, name := range t.ColumnNames() {
		cols = append(cols, quoteIdent(name))
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", quoteIdent(w.tableName), strings.Join(cols, ", "))
	tuple := "(" + strings.TrimRight(strings.Repeat("?, ", t.NumCols()), ", ") + ")"

	return buffer.ForEachBatch(t, buffer.New(0, rowsPerStatement(w.batchRows, t.NumCols())), func(batch [][]any) error {
		tuples := make([]string, len(batch))
		args := make([]any, 0, len(batch)*t.NumCols())
		for i, row := range batch {
			tuples[i] = tuple
			for _, v := range row {
				args = append(args, sqlValue(v))
			}
		}
		if _, err := tx.ExecContext(ctx, prefix+strings.Join(tuples, ", "), args...); err != nil {
			return fmt.Errorf("failed to insert rows: %w", err)
		}
		return nil
	})
}

// rowsPerStatement caps batchRows so one INSERT binds at most maxVariables
// parameters.
func rowsPerStatement(batchRows, numCols int) int {
	if numCols <= 0 {
		return batchRows
	}
	limit := max(maxVariables/numCols, 1)
	return min(batchRows, limit)
}

func (w *Writer) createIndexes(ctx context.Context, tx *sql.Tx, t *table.Table) error {
	for _, col := range []string{"date", "label"} {
		if _, ok := t.Column(col); !ok {
			continue
		}
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent("idx_"+w.tableName+"_"+col), quoteIdent(w.tableName), quoteIdent(col))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", col, err)
		}
	}
	return nil
}

// Format returns the file format.
func (w *Writer) Format() encoder.Format {
	return encoder.FormatSQLite
}

// FileExtension returns the file extension.
func (w *Writer) FileExtension() string {
	return ".db"
}
