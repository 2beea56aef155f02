// Package generator writes synthetic raw headline files in the input
// layout: Date, Label and Top1..Top25.
package generator

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// HeadlineColumns is the number of TopN columns.
const HeadlineColumns = 25

// Supported output encodings.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// badDates never parse under any accepted date layout.
var badDates = []string{"2008-13-45", "not a date", "32/01/2010", "2009-02-30x"}

// accented words force bytes outside ASCII into latin-1 output.
var accented = []string{"café", "señor", "résumé", "naïve", "déjà vu", "façade", "São Paulo", "Zürich"}

// Config controls the generated file.
type Config struct {
	Rows       int
	Duplicates int
	BadDates   int
	NullRate   float64
	Encoding   string
	Seed       int64
	Start      time.Time
}

// DefaultConfig returns a small utf-8 sample.
func DefaultConfig() Config {
	return Config{
		Rows:     100,
		Encoding: EncodingUTF8,
		Seed:     1,
		Start:    time.Date(2008, 8, 8, 0, 0, 0, 0, time.UTC),
	}
}

// Validate checks cfg.
func (c Config) Validate() error {
	if c.Rows < 1 {
		return fmt.Errorf("rows must be positive: %d", c.Rows)
	}
	if c.Duplicates < 0 || c.BadDates < 0 {
		return fmt.Errorf("duplicates and bad dates must not be negative")
	}
	if c.BadDates > c.Rows {
		return fmt.Errorf("bad dates (%d) exceed rows (%d)", c.BadDates, c.Rows)
	}
	if c.NullRate < 0 || c.NullRate > 1 {
		return fmt.Errorf("null rate must be within [0, 1]: %v", c.NullRate)
	}
	switch strings.ToLower(c.Encoding) {
	case EncodingUTF8, EncodingLatin1:
	default:
		return fmt.Errorf("unsupported encoding: %s", c.Encoding)
	}
	return nil
}

// Stats describes a generated file.
type Stats struct {
	Path       string
	Rows       int
	Duplicates int
	BadDates   int
	Nulls      int
	Encoding   string
	SizeBytes  int64
}

// ExpectedCleanRows is the row count left after cleaning.
func (s Stats) ExpectedCleanRows() int {
	return s.Rows - s.Duplicates - s.BadDates
}

// Generator produces raw records.
type Generator struct {
	cfg    Config
	faker  faker.Faker
	logger *slog.Logger
}

// New creates a Generator. The same seed yields the same records.
func New(cfg Config, logger *slog.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Start.IsZero() {
		cfg.Start = DefaultConfig().Start
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		cfg:    cfg,
		faker:  faker.NewWithSeed(rand.NewSource(cfg.Seed)),
		logger: logger,
	}, nil
}

// Header returns the input header row.
func Header() []string {
	header := []string{"Date", "Label"}
	for i := 1; i <= HeadlineColumns; i++ {
		header = append(header, "Top"+strconv.Itoa(i))
	}
	return header
}

// Records returns the data rows and the number of null headline cells,
// duplicates included.
func (g *Generator) Records() ([][]string, int) {
	rows := make([][]string, 0, g.cfg.Rows+g.cfg.Duplicates)

	day := g.cfg.Start
	for i := 0; i < g.cfg.Rows; i++ {
		row := make([]string, 0, 2+HeadlineColumns)
		row = append(row, day.Format("2006-01-02"), strconv.Itoa(g.faker.IntBetween(0, 1)))
		for c := 0; c < HeadlineColumns; c++ {
			if g.chance(g.cfg.NullRate) {
				row = append(row, "")
				continue
			}
			row = append(row, g.headline(i == 0 && c == 0))
		}
		rows = append(rows, row)
		day = nextTradingDay(day)
	}

	// Corrupt distinct rows, spread across the file.
	if g.cfg.BadDates > 0 {
		step := g.cfg.Rows / g.cfg.BadDates
		for k := 0; k < g.cfg.BadDates; k++ {
			rows[k*step][0] = badDates[k%len(badDates)]
		}
	}

	// Each duplicate lands somewhere after its original.
	for k := 0; k < g.cfg.Duplicates; k++ {
		src := g.faker.IntBetween(0, len(rows)-1)
		dup := append([]string(nil), rows[src]...)
		at := g.faker.IntBetween(src+1, len(rows))
		rows = append(rows, nil)
		copy(rows[at+1:], rows[at:])
		rows[at] = dup
	}

	nulls := 0
	for _, row := range rows {
		for _, cell := range row[2:] {
			if cell == "" {
				nulls++
			}
		}
	}
	return rows, nulls
}

// Write writes header and records to w in the configured encoding.
func (g *Generator) Write(w io.Writer) (*Stats, error) {
	out := w
	var closer io.Closer
	if strings.ToLower(g.cfg.Encoding) == EncodingLatin1 {
		ew := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).Writer(w)
		out = ew
		if c, ok := ew.(io.Closer); ok {
			closer = c
		}
	}

	records, nulls := g.Records()

	cw := csv.NewWriter(out)
	if err := cw.Write(Header()); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write records: %w", err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			return nil, fmt.Errorf("failed to flush encoder: %w", err)
		}
	}

	return &Stats{
		Rows:       len(records),
		Duplicates: g.cfg.Duplicates,
		BadDates:   g.cfg.BadDates,
		Nulls:      nulls,
		Encoding:   strings.ToLower(g.cfg.Encoding),
	}, nil
}

// WriteFile writes the sample to path, creating parent directories.
func (g *Generator) WriteFile(path string) (*Stats, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	bw := bufio.NewWriter(file)
	stats, err := g.Write(bw)
	if err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	stats.Path = path
	stats.SizeBytes = info.Size()

	g.logger.Info("sample written",
		"path", path,
		"rows", stats.Rows,
		"duplicates", stats.Duplicates,
		"bad_dates", stats.BadDates,
		"null_headlines", stats.Nulls,
		"encoding", stats.Encoding,
		"size_bytes", stats.SizeBytes,
	)
	return stats, nil
}

// headline builds one synthetic news headline.
func (g *Generator) headline(forceAccent bool) string {
	var text string
	switch g.faker.IntBetween(0, 3) {
	case 0:
		text = g.faker.Company().Name() + " shares " + g.faker.RandomStringElement([]string{"rise", "fall", "slump", "surge", "stall"}) + " after " + strings.ToLower(g.faker.Lorem().Sentence(4))
	case 1:
		text = g.faker.Address().Country() + ": " + g.faker.Lorem().Sentence(g.faker.IntBetween(5, 10))
	case 2:
		text = g.faker.Person().Name() + " says " + strings.ToLower(g.faker.Lorem().Sentence(6))
	default:
		text = g.faker.Lorem().Sentence(g.faker.IntBetween(6, 12))
	}
	text = strings.TrimSuffix(text, ".")

	if forceAccent || g.chance(0.1) {
		text += " in " + g.faker.RandomStringElement(accented)
	}
	// Source files carry byte-string artifacts and stray spacing.
	if g.chance(0.2) {
		text = `b"` + text + `"`
	}
	if g.chance(0.1) {
		text = "  " + strings.ReplaceAll(text, " ", "   ") + " "
	}
	return text
}

func (g *Generator) chance(p float64) bool {
	if p <= 0 {
		return false
	}
	return g.faker.IntBetween(0, 9999) < int(p*10000)
}

func nextTradingDay(t time.Time) time.Time {
	t = t.AddDate(0, 0, 1)
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
