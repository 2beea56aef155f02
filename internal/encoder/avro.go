package encoder

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/linkedin/goavro/v2"

	"github.com/jittakal/sentimentetl/internal/buffer"
	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/encoder"
	"github.com/jittakal/sentimentetl/pkg/table"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*AvroEncoder)(nil)

const avroBlockRows = 1000

// AvroEncoder implements encoder.Encoder for Avro Object Container Files.
// The record schema is derived from the table; every field is a nullable
// union and dates are ISO strings. Codec "gzip" writes an uncompressed OCF
// inside a gzip stream.
type AvroEncoder struct {
	codec string
}

// NewAvroEncoder creates a new Avro encoder with the given block codec.
func NewAvroEncoder(codec string) (*AvroEncoder, error) {
	switch strings.ToLower(codec) {
	case "", "null", "uncompressed", "none":
		codec = goavro.CompressionNullLabel
	case goavro.CompressionDeflateLabel, goavro.CompressionSnappyLabel, "gzip":
		codec = strings.ToLower(codec)
	default:
		return nil, fmt.Errorf("%w: avro codec %s", errors.ErrUnsupportedFormat, codec)
	}
	return &AvroEncoder{codec: codec}, nil
}

var avroNameInvalid = regexp.MustCompile(`[^A-Za-z0-9_]`)

// AvroFieldName maps a column name to a valid Avro field name.
func AvroFieldName(column string) string {
	name := avroNameInvalid.ReplaceAllString(column, "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "_" + name
	}
	return name
}

func avroType(dt table.DType) (string, error) {
	switch dt {
	case table.String, table.Date:
		return "string", nil
	case table.Int64:
		return "long", nil
	case table.Float64:
		return "double", nil
	default:
		return "", fmt.Errorf("%w: column dtype %s", errors.ErrUnsupportedFormat, dt)
	}
}

// avroSchema returns the Avro record schema for t.
func avroSchema(t *table.Table) (string, []string, error) {
	type field struct {
		Name    string `json:"name"`
		Type    []any  `json:"type"`
		Default any    `json:"default"`
		Doc     string `json:"doc,omitempty"`
	}

	fields := make([]field, 0, t.NumCols())
	names := make([]string, 0, t.NumCols())
	seen := make(map[string]string, t.NumCols())
	for _, c := range t.Columns() {
		typ, err := avroType(c.Type)
		if err != nil {
			return "", nil, err
		}
		name := AvroFieldName(c.Name)
		if prev, dup := seen[name]; dup {
			return "", nil, fmt.Errorf("columns %q and %q both map to avro field %q", prev, c.Name, name)
		}
		seen[name] = c.Name

		f := field{Name: name, Type: []any{"null", typ}}
		if name != c.Name || c.Type == table.Date {
			f.Doc = fmt.Sprintf("column %s (%s)", c.Name, c.Type)
		}
		fields = append(fields, f)
		names = append(names, name)
	}

	schema, err := json.Marshal(map[string]any{
		"type":      "record",
		"name":      "CleanRecord",
		"namespace": "com.jittakal.sentimentetl",
		"fields":    fields,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal avro schema: %w", err)
	}
	return string(schema), names, nil
}

func avroValue(dt table.DType, v any) any {
	if v == nil {
		return nil
	}
	switch dt {
	case table.Int64:
		return goavro.Union("long", v)
	case table.Float64:
		return goavro.Union("double", v)
	default:
		return goavro.Union("string", table.FormatValue(v))
	}
}

// Encode writes t to an Avro OCF file, one block per avroBlockRows rows.
func (e *AvroEncoder) Encode(filePath string, t *table.Table) (*encoder.FileStats, error) {
	if t.NumCols() == 0 {
		return nil, errors.ErrNoData
	}

	schema, names, err := avroSchema(t)
	if err != nil {
		return nil, err
	}
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create avro codec: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	var writer io.Writer = file
	var gzipWriter *gzip.Writer
	compression := e.codec
	if e.codec == "gzip" {
		gzipWriter = gzip.NewWriter(file)
		writer = gzipWriter
		compression = goavro.CompressionNullLabel
		defer gzipWriter.Close()
	}

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               writer,
		Codec:           codec,
		CompressionName: compression,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OCF writer: %w", err)
	}

	columns := t.Columns()
	err = buffer.ForEachBatch(t, buffer.New(0, avroBlockRows), func(batch [][]any) error {
		records := make([]any, len(batch))
		for i, cells := range batch {
			rec := make(map[string]any, len(cells))
			for j, v := range cells {
				rec[names[j]] = avroValue(columns[j].Type, v)
			}
			records[i] = rec
		}
		if err := ocfWriter.Append(records); err != nil {
			return fmt.Errorf("failed to write records: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if gzipWriter != nil {
		if err := gzipWriter.Close(); err != nil {
			return nil, fmt.Errorf("failed to close gzip writer: %w", err)
		}
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return statFile(encoder.FormatAvro, filePath, t.NumRows())
}

// Format returns the file format.
func (e *AvroEncoder) Format() encoder.Format {
	return encoder.FormatAvro
}

// FileExtension returns the file extension.
func (e *AvroEncoder) FileExtension() string {
	if e.codec == "gzip" {
		return ".avro.gz"
	}
	return ".avro"
}
