package encoder

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/jittakal/sentimentetl/internal/buffer"
	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/encoder"
	"github.com/jittakal/sentimentetl/pkg/table"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*ParquetEncoder)(nil)

// ColumnsMetadataKey holds the original column order and dtypes as JSON.
// Parquet group fields are stored sorted by name, so this is needed to
// restore the table exactly.
const ColumnsMetadataKey = "sentimentetl.columns"

const defaultRowGroupRows = 10000

var epoch = time.Unix(0, 0).UTC()

type columnMeta struct {
	Name string      `json:"name"`
	Type table.DType `json:"type"`
}

// ParquetEncoder implements encoder.Encoder for Apache Parquet columnar format.
// The schema is derived from the table: every column is optional, strings are
// UTF8 byte arrays, int64 is INT64, float64 is DOUBLE and dates are DATE.
type ParquetEncoder struct {
	compressionName string
	rowGroupRows    int
}

// NewParquetEncoder creates a new Parquet encoder with specified compression.
func NewParquetEncoder(compression string, rowGroupRows int) *ParquetEncoder {
	if rowGroupRows <= 0 {
		rowGroupRows = defaultRowGroupRows
	}
	return &ParquetEncoder{
		compressionName: compression,
		rowGroupRows:    rowGroupRows,
	}
}

// compressionCodec converts string compression name to parquet WriterOption.
func compressionCodec(compression string) parquet.WriterOption {
	switch compression {
	case "snappy", "SNAPPY":
		return parquet.Compression(&parquet.Snappy)
	case "gzip", "GZIP":
		return parquet.Compression(&parquet.Gzip)
	case "lz4", "LZ4":
		return parquet.Compression(&parquet.Lz4Raw)
	case "zstd", "ZSTD":
		return parquet.Compression(&parquet.Zstd)
	case "uncompressed", "UNCOMPRESSED", "none", "NONE":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Snappy)
	}
}

func parquetNode(dt table.DType) (parquet.Node, error) {
	switch dt {
	case table.String:
		return parquet.String(), nil
	case table.Int64:
		return parquet.Int(64), nil
	case table.Float64:
		return parquet.Leaf(parquet.DoubleType), nil
	case table.Date:
		return parquet.Date(), nil
	default:
		return nil, fmt.Errorf("%w: column dtype %s", errors.ErrUnsupportedFormat, dt)
	}
}

// schemaFor builds the Parquet schema for t and maps each table column to
// its leaf index in the schema.
func schemaFor(t *table.Table) (*parquet.Schema, []int, error) {
	group := make(parquet.Group, t.NumCols())
	for _, c := range t.Columns() {
		node, err := parquetNode(c.Type)
		if err != nil {
			return nil, nil, err
		}
		group[c.Name] = parquet.Optional(node)
	}
	schema := parquet.NewSchema("stock_sentiment", group)

	leaf := make(map[string]int, t.NumCols())
	for i, f := range schema.Fields() {
		leaf[f.Name()] = i
	}
	indexes := make([]int, t.NumCols())
	for j, c := range t.Columns() {
		indexes[j] = leaf[c.Name]
	}
	return schema, indexes, nil
}

const secondsPerDay = 24 * 60 * 60

// epochDays returns the DATE value of d: whole days since 1970-01-01,
// floored for dates before the epoch.
func epochDays(d time.Time) (int32, error) {
	secs := table.DateOf(d).Unix()
	days := secs / secondsPerDay
	if secs%secondsPerDay != 0 && secs < 0 {
		days--
	}
	if days < math.MinInt32 || days > math.MaxInt32 {
		return 0, fmt.Errorf("date %s out of parquet DATE range", d.Format(table.DateLayout))
	}
	return int32(days), nil
}

func parquetValue(v any) (parquet.Value, error) {
	switch x := v.(type) {
	case string:
		return parquet.ByteArrayValue([]byte(x)), nil
	case int64:
		return parquet.Int64Value(x), nil
	case float64:
		return parquet.DoubleValue(x), nil
	case time.Time:
		days, err := epochDays(x)
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.Int32Value(days), nil
	default:
		return parquet.NullValue(), nil
	}
}

// Encode writes the table to a Parquet file, one row group per batch of
// rowGroupRows rows.
func (e *ParquetEncoder) Encode(filePath string, t *table.Table) (*encoder.FileStats, error) {
	if t.NumCols() == 0 {
		return nil, errors.ErrNoData
	}

	schema, indexes, err := schemaFor(t)
	if err != nil {
		return nil, err
	}

	meta := make([]columnMeta, 0, t.NumCols())
	for _, c := range t.Columns() {
		meta = append(meta, columnMeta{Name: c.Name, Type: c.Type})
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal column metadata: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewWriter(
		file,
		schema,
		compressionCodec(e.compressionName),
		parquet.CreatedBy("sentimentetl", "1.0", "0"),
		parquet.KeyValueMetadata(ColumnsMetadataKey, string(metaJSON)),
	)

	err = buffer.ForEachBatch(t, buffer.New(0, e.rowGroupRows), func(batch [][]any) error {
		rows := make([]parquet.Row, len(batch))
		for i, cells := range batch {
			row := make(parquet.Row, len(cells))
			for j, v := range cells {
				definitionLevel := 1
				if v == nil {
					definitionLevel = 0
				}
				pv, err := parquetValue(v)
				if err != nil {
					return err
				}
				row[indexes[j]] = pv.Level(0, definitionLevel, indexes[j])
			}
			rows[i] = row
		}
		if _, err := writer.WriteRows(rows); err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
		return writer.Flush()
	})
	if err != nil {
		writer.Close()
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return statFile(encoder.FormatParquet, filePath, t.NumRows())
}

// Format returns the file format.
func (e *ParquetEncoder) Format() encoder.Format {
	return encoder.FormatParquet
}

// FileExtension returns the file extension.
func (e *ParquetEncoder) FileExtension() string {
	return ".parquet"
}

// ReadParquet reads a file written by ParquetEncoder back into a table with
// the original column order, dtypes and cells.
func ReadParquet(filePath string) (*table.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.FileNotFoundError{Path: filePath, Err: err}
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	metaJSON, ok := pf.Lookup(ColumnsMetadataKey)
	if !ok {
		return nil, fmt.Errorf("parquet file %s has no %s metadata", filePath, ColumnsMetadataKey)
	}
	var meta []columnMeta
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse column metadata: %w", err)
	}

	leaf := make(map[string]int, len(meta))
	for i, f := range pf.Schema().Fields() {
		leaf[f.Name()] = i
	}
	columns := make([]*table.Column, len(meta))
	byLeaf := make(map[int]*table.Column, len(meta))
	for j, m := range meta {
		idx, ok := leaf[m.Name]
		if !ok {
			return nil, fmt.Errorf("column %q missing from parquet schema", m.Name)
		}
		columns[j] = &table.Column{Name: m.Name, Type: m.Type, Values: make([]any, 0, pf.NumRows())}
		byLeaf[idx] = columns[j]
	}

	buf := make([]parquet.Row, 256)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				for _, v := range row {
					c, ok := byLeaf[v.Column()]
					if !ok {
						continue
					}
					c.Values = append(c.Values, cellOf(c.Type, v))
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to read rows: %w", err)
			}
		}
		rows.Close()
	}

	return table.FromColumns(columns...)
}

func cellOf(dt table.DType, v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch dt {
	case table.String:
		return string(v.ByteArray())
	case table.Int64:
		return v.Int64()
	case table.Float64:
		return v.Double()
	case table.Date:
		return epoch.AddDate(0, 0, int(v.Int32()))
	default:
		return nil
	}
}
