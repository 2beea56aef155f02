// Package extract reads the raw headline CSV into a table, trying a list of
// text encodings until one decodes the file.
package extract

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/table"
)

// DefaultPreviewRows is the preview size used when n <= 0.
const DefaultPreviewRows = 5

// Option configures an Extractor.
type Option func(*Extractor)

// WithEncodings overrides the ordered list of encodings to try.
func WithEncodings(encodings ...string) Option {
	return func(e *Extractor) {
		if len(encodings) > 0 {
			e.encodings = append([]string(nil), encodings...)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Extractor loads one CSV file into memory.
type Extractor struct {
	path      string
	encodings []string
	logger    *slog.Logger

	data     *table.Table
	encoding string
}

// Info summarizes an extracted table.
type Info struct {
	Rows        int
	Columns     int
	ColumnNames []string
	DTypes      map[string]table.DType
	NullCounts  map[string]int
	MemoryMB    float64
}

// New creates an extractor for the file at path.
func New(path string, opts ...Option) *Extractor {
	e := &Extractor{
		path:      path,
		encodings: append([]string(nil), DefaultEncodings...),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Path returns the input path.
func (e *Extractor) Path() string {
	return e.path
}

// Encoding returns the encoding that decoded the file, or "" before a
// successful Extract.
func (e *Extractor) Encoding() string {
	return e.encoding
}

// Data returns the extracted table, or nil before a successful Extract.
func (e *Extractor) Data() *table.Table {
	return e.data
}

// Extract reads and parses the whole file. Encodings are tried in order and
// the first that decodes the bytes wins. A CSV syntax error under a decoded
// encoding is returned immediately as a ParseError.
func (e *Extractor) Extract() (*table.Table, error) {
	start := time.Now()
	e.logger.Info("extracting data", "path", e.path)

	raw, err := os.ReadFile(e.path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, &errors.FileNotFoundError{Path: e.path, Err: err}
		}
		return nil, fmt.Errorf("failed to read %s: %w", e.path, err)
	}

	var decodeErrs []error
	for _, name := range e.encodings {
		decode, err := decoderFor(name)
		if err != nil {
			decodeErrs = append(decodeErrs, err)
			continue
		}

		text, err := decode(raw)
		if err != nil {
			e.logger.Debug("encoding rejected", "encoding", name, "error", err)
			decodeErrs = append(decodeErrs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		t, err := parseCSV(text)
		if err != nil {
			var line int
			var csvErr *csv.ParseError
			if stderrors.As(err, &csvErr) {
				line = csvErr.Line
			}
			return nil, &errors.ParseError{Path: e.path, Encoding: name, Line: line, Err: err}
		}

		e.data = t
		e.encoding = name
		rows, cols := t.Shape()
		e.logger.Info("data extracted",
			"path", e.path,
			"encoding", name,
			"rows", rows,
			"columns", cols,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return t, nil
	}

	return nil, &errors.DecodingError{
		Path:      e.path,
		Encodings: append([]string(nil), e.encodings...),
		Err:       stderrors.Join(decodeErrs...),
	}
}

// Info returns shape, names, dtypes, null counts and estimated memory of the
// extracted table, extracting first if needed.
func (e *Extractor) Info() (*Info, error) {
	if err := e.ensure(); err != nil {
		return nil, err
	}
	rows, cols := e.data.Shape()
	return &Info{
		Rows:        rows,
		Columns:     cols,
		ColumnNames: e.data.ColumnNames(),
		DTypes:      e.data.DTypes(),
		NullCounts:  e.data.NullCounts(),
		MemoryMB:    float64(e.data.EstimatedBytes()) / (1024 * 1024),
	}, nil
}

// Preview returns the first n rows, extracting first if needed.
// n <= 0 selects DefaultPreviewRows.
func (e *Extractor) Preview(n int) (*table.Table, error) {
	if err := e.ensure(); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = DefaultPreviewRows
	}
	return e.data.Head(n), nil
}

func (e *Extractor) ensure() error {
	if e.data != nil {
		return nil
	}
	_, err := e.Extract()
	return err
}

// parseCSV parses decoded text with a header row. Short rows are padded
// with nulls; rows longer than the header are an error.
func parseCSV(text string) (*table.Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.ErrNoData
	}
	if err != nil {
		return nil, err
	}
	header = dedupeHeader(header)

	cells := make([][]string, len(header))
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, &csv.ParseError{StartLine: line, Line: line, Column: len(header) + 1, Err: csv.ErrFieldCount}
		}
		for j := range header {
			if j < len(record) {
				cells[j] = append(cells[j], record[j])
			} else {
				cells[j] = append(cells[j], "")
			}
		}
	}

	columns := make([]*table.Column, len(header))
	for j, name := range header {
		columns[j] = inferColumn(name, cells[j])
	}
	return table.FromColumns(columns...)
}
