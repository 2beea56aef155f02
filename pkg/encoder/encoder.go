// Package encoder defines interfaces for encoding tables to various file formats.
package encoder

import (
	"time"

	"github.com/jittakal/sentimentetl/pkg/table"
)

// Format represents an output file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatAvro    Format = "avro"
	FormatSQLite  Format = "sqlite"
)

// FileStats contains statistics about a written file.
type FileStats struct {
	Format      Format
	Path        string
	RecordCount int
	SizeBytes   int64
	WrittenAt   time.Time
}

// Encoder encodes a table to a specific file format.
type Encoder interface {
	// Encode writes the table to a file, replacing any existing file,
	// and returns file statistics.
	Encode(filePath string, t *table.Table) (*FileStats, error)

	// Format returns the file format this encoder produces.
	Format() Format

	// FileExtension returns the file extension (e.g., ".parquet", ".db").
	FileExtension() string
}
