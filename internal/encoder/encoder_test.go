package encoder

import (
	stderrors "errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/encoder"
	"github.com/jittakal/sentimentetl/pkg/table"
)

// mixedTable covers every dtype, nulls, unicode and a column order that is
// not alphabetical.
func mixedTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromColumns(
		&table.Column{Name: "top1", Type: table.String, Values: []any{"café, \"quoted\"", nil, "línea\nnueva"}},
		&table.Column{Name: "date", Type: table.Date, Values: []any{
			time.Date(2008, 8, 8, 0, 0, 0, 0, time.UTC),
			time.Date(1965, 3, 1, 0, 0, 0, 0, time.UTC),
			nil,
		}},
		&table.Column{Name: "label", Type: table.Int64, Values: []any{int64(1), nil, int64(math.MaxInt64)}},
		&table.Column{Name: "score", Type: table.Float64, Values: []any{0.1, -2.5e10, nil}},
	)
	if err != nil {
		t.Fatalf("FromColumns() error = %v", err)
	}
	return tbl
}

func TestFactory_CreateEncoder(t *testing.T) {
	factory := NewFactory(FactoryConfig{
		ParquetCompression: "snappy",
		RowGroupRows:       100,
		AvroCodec:          "deflate",
		TableName:          "stock_sentiment",
		SQLiteBatchRows:    10,
	})

	tests := []struct {
		name    string
		format  encoder.Format
		wantExt string
		wantErr bool
	}{
		{"csv format", encoder.FormatCSV, ".csv", false},
		{"parquet format", encoder.FormatParquet, ".parquet", false},
		{"avro format", encoder.FormatAvro, ".avro", false},
		{"sqlite format", encoder.FormatSQLite, ".db", false},
		{"unsupported format", encoder.Format("orc"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := factory.CreateEncoder(tt.format)
			if tt.wantErr {
				if !stderrors.Is(err, errors.ErrUnsupportedFormat) {
					t.Errorf("CreateEncoder() error = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateEncoder() error = %v", err)
			}
			if enc.Format() != tt.format {
				t.Errorf("Format() = %s, want %s", enc.Format(), tt.format)
			}
			if enc.FileExtension() != tt.wantExt {
				t.Errorf("FileExtension() = %s, want %s", enc.FileExtension(), tt.wantExt)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    encoder.Format
		wantErr bool
	}{
		{"csv", encoder.FormatCSV, false},
		{"PARQUET", encoder.FormatParquet, false},
		{"sqlite", encoder.FormatSQLite, false},
		{"avro", encoder.FormatAvro, false},
		{"xlsx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %s, %v", tt.in, got, err)
		}
	}
}

func TestSupportedCompressions(t *testing.T) {
	tests := []struct {
		format encoder.Format
		want   int
	}{
		{encoder.FormatParquet, 5},
		{encoder.FormatAvro, 4},
		{encoder.FormatCSV, 0},
	}
	for _, tt := range tests {
		if got := len(SupportedCompressions(tt.format)); got != tt.want {
			t.Errorf("SupportedCompressions(%s) has %d entries, want %d", tt.format, got, tt.want)
		}
	}
	if DefaultCompression(encoder.FormatParquet) != "snappy" {
		t.Errorf("DefaultCompression(parquet) = %s", DefaultCompression(encoder.FormatParquet))
	}
}

func TestCSVEncoder_Encode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	stats, err := NewCSVEncoder().Encode(path, mixedTable(t))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if stats.RecordCount != 3 || stats.Format != encoder.FormatCSV {
		t.Errorf("stats = %+v", stats)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := "top1,date,label,score\n" +
		"\"café, \"\"quoted\"\"\",2008-08-08,1,0.1\n" +
		",1965-03-01,,-25000000000\n" +
		"\"línea\nnueva\",,9223372036854775807,\n"
	if string(data) != want {
		t.Errorf("csv content =\n%s\nwant\n%s", data, want)
	}
	if stats.SizeBytes != int64(len(want)) {
		t.Errorf("SizeBytes = %d, want %d", stats.SizeBytes, len(want))
	}
}

func TestEncoders_RejectTableWithoutColumns(t *testing.T) {
	avroEnc, err := NewAvroEncoder("null")
	if err != nil {
		t.Fatalf("NewAvroEncoder() error = %v", err)
	}
	encoders := []encoder.Encoder{NewCSVEncoder(), NewParquetEncoder("snappy", 10), avroEnc}

	for _, enc := range encoders {
		t.Run(string(enc.Format()), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out"+enc.FileExtension())
			if _, err := enc.Encode(path, table.New()); !stderrors.Is(err, errors.ErrNoData) {
				t.Errorf("Encode() error = %v, want ErrNoData", err)
			}
		})
	}
}

func TestEncoders_InvalidPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "out")
	encoders := []encoder.Encoder{NewCSVEncoder(), NewParquetEncoder("snappy", 10)}

	for _, enc := range encoders {
		if _, err := enc.Encode(path+enc.FileExtension(), mixedTable(t)); err == nil {
			t.Errorf("%s Encode() into a missing directory succeeded", enc.Format())
		}
	}
}
