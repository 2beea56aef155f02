package encoder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/jittakal/sentimentetl/pkg/table"
)

func TestParquetEncoder_RoundTrip(t *testing.T) {
	compressions := []string{"snappy", "gzip", "lz4", "zstd", "uncompressed"}

	for _, compression := range compressions {
		t.Run(compression, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.parquet")
			in := mixedTable(t)

			stats, err := NewParquetEncoder(compression, 2).Encode(path, in)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if stats.RecordCount != 3 || stats.SizeBytes == 0 {
				t.Errorf("stats = %+v", stats)
			}

			out, err := ReadParquet(path)
			if err != nil {
				t.Fatalf("ReadParquet() error = %v", err)
			}
			if strings.Join(out.ColumnNames(), ",") != "top1,date,label,score" {
				t.Errorf("column order = %v", out.ColumnNames())
			}
			if !out.Equal(in) {
				t.Errorf("round trip mismatch\nwant %v\ngot  %v", in.DTypes(), out.DTypes())
				for i := 0; i < out.NumRows() && i < in.NumRows(); i++ {
					t.Logf("row %d: want %v got %v", i, in.Row(i), out.Row(i))
				}
			}
		})
	}
}

func TestParquetEncoder_RowGroups(t *testing.T) {
	values := make([]any, 25)
	for i := range values {
		values[i] = int64(i)
	}
	tbl, _ := table.FromColumns(&table.Column{Name: "n", Type: table.Int64, Values: values})
	path := filepath.Join(t.TempDir(), "groups.parquet")

	if _, err := NewParquetEncoder("snappy", 10).Encode(path, tbl); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	info, _ := f.Stat()

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if got := len(pf.RowGroups()); got != 3 {
		t.Errorf("row groups = %d, want 3", got)
	}
	if pf.NumRows() != 25 {
		t.Errorf("NumRows() = %d, want 25", pf.NumRows())
	}
	if _, ok := pf.Lookup(ColumnsMetadataKey); !ok {
		t.Errorf("missing %s metadata", ColumnsMetadataKey)
	}
}

func TestParquetEncoder_EmptyRows(t *testing.T) {
	tbl, _ := table.FromColumns(
		&table.Column{Name: "date", Type: table.Date},
		&table.Column{Name: "label", Type: table.Int64},
	)
	path := filepath.Join(t.TempDir(), "empty.parquet")

	if _, err := NewParquetEncoder("snappy", 10).Encode(path, tbl); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out, err := ReadParquet(path)
	if err != nil {
		t.Fatalf("ReadParquet() error = %v", err)
	}
	if out.NumRows() != 0 || out.NumCols() != 2 {
		t.Errorf("shape = %d x %d, want 0 x 2", out.NumRows(), out.NumCols())
	}
}

func TestParquetEncoder_DateEncoding(t *testing.T) {
	tests := []struct {
		date time.Time
		days int32
	}{
		{time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC), -1},
		{time.Date(2008, 8, 8, 0, 0, 0, 0, time.UTC), 14099},
		{time.Date(1600, 1, 2, 0, 0, 0, 0, time.UTC), -135139},
		{time.Date(2300, 5, 6, 0, 0, 0, 0, time.UTC), 120655},
	}
	for _, tt := range tests {
		v, err := parquetValue(tt.date)
		if err != nil {
			t.Fatalf("parquetValue(%s) error = %v", tt.date.Format(table.DateLayout), err)
		}
		if v.Int32() != tt.days {
			t.Errorf("parquetValue(%s) = %d days, want %d", tt.date.Format(table.DateLayout), v.Int32(), tt.days)
		}
		if got := cellOf(table.Date, v); !table.CellEqual(got, tt.date) {
			t.Errorf("cellOf(%d) = %v, want %v", tt.days, got, tt.date)
		}
	}
}

func TestParquetEncoder_DistantDatesRoundTrip(t *testing.T) {
	dates := []any{
		time.Date(1600, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2300, 5, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2008, 8, 8, 0, 0, 0, 0, time.UTC),
		nil,
	}
	in, err := table.FromColumns(&table.Column{Name: "date", Type: table.Date, Values: dates})
	if err != nil {
		t.Fatalf("FromColumns() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "distant.parquet")
	if _, err := NewParquetEncoder("snappy", 0).Encode(path, in); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out, err := ReadParquet(path)
	if err != nil {
		t.Fatalf("ReadParquet() error = %v", err)
	}
	if !out.Equal(in) {
		for i := 0; i < out.NumRows(); i++ {
			t.Errorf("row %d: wrote %v read %v", i, in.Row(i), out.Row(i))
		}
	}
}

func TestEpochDays_OutOfRange(t *testing.T) {
	if _, err := epochDays(time.Date(9999999, 1, 1, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Error("epochDays() expected out-of-range error")
	}
}

func TestReadParquet_MissingFile(t *testing.T) {
	if _, err := ReadParquet(filepath.Join(t.TempDir(), "nope.parquet")); !os.IsNotExist(unwrapAll(err)) {
		t.Errorf("ReadParquet() error = %v, want not-exist", err)
	}
}

func unwrapAll(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok || u.Unwrap() == nil {
			return err
		}
		err = u.Unwrap()
	}
}
