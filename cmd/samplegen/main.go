package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jittakal/sentimentetl/internal/generator"
	"github.com/jittakal/sentimentetl/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("samplegen error: %v", err)
	}
}

func run() error {
	def := generator.DefaultConfig()

	out := flag.String("out", "stock_senti_analysis.csv", "output CSV path")
	rows := flag.Int("rows", def.Rows, "number of distinct rows")
	duplicates := flag.Int("duplicates", 0, "exact duplicate rows to insert")
	badDates := flag.Int("bad-dates", 0, "rows with unparseable dates")
	nullRate := flag.Float64("null-rate", 0, "probability that a headline cell is empty")
	encoding := flag.String("encoding", def.Encoding, "output encoding: utf-8 or latin-1")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := observability.NewLogger(observability.LoggingConfig{Level: *logLevel})

	cfg := generator.Config{
		Rows:       *rows,
		Duplicates: *duplicates,
		BadDates:   *badDates,
		NullRate:   *nullRate,
		Encoding:   *encoding,
		Seed:       *seed,
		Start:      def.Start,
	}

	gen, err := generator.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	stats, err := gen.WriteFile(*out)
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s: %d rows (%d duplicates, %d bad dates, %d empty headlines), %s, %d bytes, seed %d\n",
		stats.Path, stats.Rows, stats.Duplicates, stats.BadDates, stats.Nulls, stats.Encoding, stats.SizeBytes, *seed)
	fmt.Printf("expected clean rows: %d\n", stats.ExpectedCleanRows())
	return nil
}
