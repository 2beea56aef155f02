// Package load writes a clean table to every configured output format.
package load

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	encoderimpl "github.com/jittakal/sentimentetl/internal/encoder"
	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/internal/observability"
	"github.com/jittakal/sentimentetl/pkg/encoder"
	"github.com/jittakal/sentimentetl/pkg/table"
)

// MetricsCollector defines the interface for load metrics.
type MetricsCollector interface {
	IncFilesWritten(format, status string)
	ObserveFileSize(format string, size float64)
	ObserveFileWriteDuration(format string, seconds float64)
	IncLoadErrors(format string)
}

// EncoderFactory creates the encoder for a format.
type EncoderFactory interface {
	CreateEncoder(format encoder.Format) (encoder.Encoder, error)
}

// contextEncoder is implemented by encoders whose writes can be cancelled.
type contextEncoder interface {
	EncodeContext(ctx context.Context, filePath string, t *table.Table) (*encoder.FileStats, error)
}

// Config describes where outputs are written.
type Config struct {
	OutputDir string
	BaseName  string
	Formats   []encoder.Format
}

// Result is the outcome of writing one format.
type Result struct {
	Format    encoder.Format `json:"format"`
	Path      string         `json:"path"`
	Rows      int            `json:"rows"`
	SizeBytes int64          `json:"size_bytes"`
	Duration  time.Duration  `json:"duration"`
	Err       error          `json:"-"`
}

// OK reports whether the format was written.
func (r Result) OK() bool {
	return r.Err == nil
}

// Report lists one Result per attempted format, in configured order.
type Report struct {
	Results []Result `json:"results"`
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Paths returns the paths of successfully written files.
func (r *Report) Paths() []string {
	var paths []string
	for _, res := range r.Results {
		if res.Err == nil {
			paths = append(paths, res.Path)
		}
	}
	return paths
}

// Result returns the result for format.
func (r *Report) Result(format encoder.Format) (Result, bool) {
	for _, res := range r.Results {
		if res.Format == format {
			return res, true
		}
	}
	return Result{}, false
}

// Loader writes tables to the configured formats.
type Loader struct {
	cfg     Config
	factory EncoderFactory
	logger  *slog.Logger
	metrics MetricsCollector
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics MetricsCollector) Option {
	return func(l *Loader) {
		l.metrics = metrics
	}
}

// WithFactory replaces the encoder factory.
func WithFactory(factory EncoderFactory) Option {
	return func(l *Loader) {
		l.factory = factory
	}
}

// New creates a Loader. Without WithFactory, encoders use default settings.
func New(cfg Config, opts ...Option) *Loader {
	l := &Loader{
		cfg:     cfg,
		factory: encoderimpl.NewFactory(encoderimpl.FactoryConfig{TableName: "stock_sentiment"}),
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadAll writes t in every configured format. A failing format does not
// stop the others; the returned error joins every failure.
func (l *Loader) LoadAll(ctx context.Context, t *table.Table) (*Report, error) {
	report := &Report{Results: make([]Result, 0, len(l.cfg.Formats))}
	var errs []error

	for _, format := range l.cfg.Formats {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := l.Load(ctx, format, t)
		report.Results = append(report.Results, res)
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}

	return report, stderrors.Join(errs...)
}

// Load writes t in one format. Any failure is returned in Result.Err as a
// *errors.SerializationError.
func (l *Loader) Load(ctx context.Context, format encoder.Format, t *table.Table) Result {
	start := time.Now()
	res := Result{Format: format}

	fail := func(err error) Result {
		res.Err = &errors.SerializationError{Format: string(format), Path: res.Path, Err: err}
		res.Duration = time.Since(start)
		l.logger.Error("failed to write output", "format", format, "path", res.Path, "error", err)
		if l.metrics != nil {
			l.metrics.IncFilesWritten(string(format), "failure")
			l.metrics.IncLoadErrors(string(format))
		}
		return res
	}

	enc, err := l.factory.CreateEncoder(format)
	if err != nil {
		return fail(err)
	}
	res.Path = filepath.Join(l.cfg.OutputDir, l.cfg.BaseName+enc.FileExtension())

	if err := os.MkdirAll(l.cfg.OutputDir, 0755); err != nil {
		return fail(fmt.Errorf("failed to create output dir: %w", err))
	}

	var stats *encoder.FileStats
	if ce, ok := enc.(contextEncoder); ok {
		stats, err = ce.EncodeContext(ctx, res.Path, t)
	} else {
		stats, err = enc.Encode(res.Path, t)
	}
	if err != nil {
		return fail(err)
	}

	res.Rows = stats.RecordCount
	res.SizeBytes = stats.SizeBytes
	res.Duration = time.Since(start)

	if l.metrics != nil {
		l.metrics.IncFilesWritten(string(format), "success")
		l.metrics.ObserveFileSize(string(format), float64(stats.SizeBytes))
		l.metrics.ObserveFileWriteDuration(string(format), res.Duration.Seconds())
	}
	l.logger.Info("output written",
		"format", format,
		"path", res.Path,
		"rows", res.Rows,
		"size_bytes", res.SizeBytes,
		"duration_ms", res.Duration.Milliseconds())

	return res
}
