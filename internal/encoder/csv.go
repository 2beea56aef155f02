package encoder

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/encoder"
	"github.com/jittakal/sentimentetl/pkg/table"
)

var _ encoder.Encoder = (*CSVEncoder)(nil)

// CSVEncoder writes UTF-8 CSV with a header row. Nulls are empty cells and
// dates are written as YYYY-MM-DD.
type CSVEncoder struct{}

// NewCSVEncoder creates a CSV encoder.
func NewCSVEncoder() *CSVEncoder {
	return &CSVEncoder{}
}

// Encode writes t to filePath, replacing any existing file.
func (e *CSVEncoder) Encode(filePath string, t *table.Table) (*encoder.FileStats, error) {
	if t.NumCols() == 0 {
		return nil, errors.ErrNoData
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	bw := bufio.NewWriter(file)
	w := csv.NewWriter(bw)

	if err := w.Write(t.ColumnNames()); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range t.Columns() {
			record[j] = table.FormatValue(c.Values[i])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv writer: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return statFile(encoder.FormatCSV, filePath, t.NumRows())
}

// Format returns the file format.
func (e *CSVEncoder) Format() encoder.Format {
	return encoder.FormatCSV
}

// FileExtension returns the file extension.
func (e *CSVEncoder) FileExtension() string {
	return ".csv"
}

func statFile(format encoder.Format, filePath string, rows int) (*encoder.FileStats, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return &encoder.FileStats{
		Format:      format,
		Path:        filePath,
		RecordCount: rows,
		SizeBytes:   fileInfo.Size(),
		WrittenAt:   time.Now(),
	}, nil
}
