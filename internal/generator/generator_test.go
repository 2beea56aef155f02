package generator

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jittakal/sentimentetl/internal/extract"
	"github.com/jittakal/sentimentetl/internal/observability"
	"github.com/jittakal/sentimentetl/internal/transform"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"latin-1", func(c *Config) { c.Encoding = "LATIN-1" }, false},
		{"zero rows", func(c *Config) { c.Rows = 0 }, true},
		{"negative duplicates", func(c *Config) { c.Duplicates = -1 }, true},
		{"too many bad dates", func(c *Config) { c.BadDates = c.Rows + 1 }, true},
		{"null rate above one", func(c *Config) { c.NullRate = 1.5 }, true},
		{"unknown encoding", func(c *Config) { c.Encoding = "utf-16" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHeader(t *testing.T) {
	h := Header()
	if len(h) != 27 || h[0] != "Date" || h[1] != "Label" || h[26] != "Top25" {
		t.Errorf("Header() = %v", h)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rows, cfg.Duplicates, cfg.BadDates, cfg.NullRate = 30, 3, 2, 0.05

	var a, b bytes.Buffer
	for _, buf := range []*bytes.Buffer{&a, &b} {
		g, err := New(cfg, observability.NopLogger())
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, err := g.Write(buf); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("same seed should produce identical output")
	}
}

func TestGenerator_Records(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rows, cfg.Duplicates, cfg.BadDates = 40, 4, 3

	g, _ := New(cfg, observability.NopLogger())
	rows, nulls := g.Records()

	if len(rows) != 44 {
		t.Fatalf("rows = %d, want 44", len(rows))
	}
	if nulls != 0 {
		t.Errorf("nulls = %d with zero null rate", nulls)
	}

	bad := 0
	seen := map[string]int{}
	for _, r := range rows {
		if len(r) != 27 {
			t.Fatalf("row has %d cells, want 27", len(r))
		}
		if r[1] != "0" && r[1] != "1" {
			t.Errorf("label = %q", r[1])
		}
		for _, d := range badDates {
			if r[0] == d {
				bad++
			}
		}
		seen[strings.Join(r, "\x00")]++
	}
	if bad < 3 {
		t.Errorf("bad dates found = %d, want at least 3", bad)
	}
	extra := 0
	for _, n := range seen {
		extra += n - 1
	}
	if extra != 4 {
		t.Errorf("duplicate rows = %d, want 4", extra)
	}
}

func TestGenerator_Latin1(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rows = 5
	cfg.Encoding = EncodingLatin1

	g, _ := New(cfg, observability.NopLogger())
	var buf bytes.Buffer
	if _, err := g.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if utf8.Valid(buf.Bytes()) {
		t.Error("latin-1 output should not be valid UTF-8")
	}
}

func TestGenerator_RoundTripThroughPipeline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rows, cfg.Duplicates, cfg.BadDates, cfg.NullRate = 60, 5, 4, 0.05
	cfg.Encoding = EncodingLatin1
	cfg.Seed = 42

	g, _ := New(cfg, observability.NopLogger())
	path := filepath.Join(t.TempDir(), "raw", "sample.csv")
	stats, err := g.WriteFile(path)
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if stats.Rows != 65 || stats.SizeBytes == 0 {
		t.Errorf("stats = %+v", stats)
	}

	ex := extract.New(path, extract.WithLogger(observability.NopLogger()))
	raw, err := ex.Extract()
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if ex.Encoding() != "latin-1" {
		t.Errorf("detected encoding = %s, want latin-1", ex.Encoding())
	}
	if rows, cols := raw.Shape(); rows != 65 || cols != 27 {
		t.Errorf("raw shape = %dx%d, want 65x27", rows, cols)
	}
	if raw.NullCount() != stats.Nulls {
		t.Errorf("raw nulls = %d, want %d", raw.NullCount(), stats.Nulls)
	}

	tr := transform.New(raw, transform.WithLogger(observability.NopLogger()))
	clean, err := tr.TransformAll()
	if err != nil {
		t.Fatalf("TransformAll() error = %v", err)
	}
	if clean.NumRows() != stats.ExpectedCleanRows() {
		t.Errorf("clean rows = %d, want %d", clean.NumRows(), stats.ExpectedCleanRows())
	}
}
