package transform

import (
	"fmt"
	"log/slog"

	"github.com/jittakal/sentimentetl/internal/observability"
	"github.com/jittakal/sentimentetl/internal/validator"
	"github.com/jittakal/sentimentetl/pkg/table"
)

// MetricsCollector defines the interface for transform metrics.
type MetricsCollector interface {
	AddRowsRemoved(step string, rows int)
}

// Shape is a (rows, columns) pair.
type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

func shapeOf(t *table.Table) Shape {
	rows, cols := t.Shape()
	return Shape{Rows: rows, Columns: cols}
}

// Report summarizes a transformation run.
type Report struct {
	Transformations []StepResult `json:"transformations"`
	OriginalShape   Shape        `json:"original_shape"`
	CleanShape      Shape        `json:"clean_shape"`
	OriginalNulls   int          `json:"original_nulls"`
	CleanNulls      int          `json:"clean_nulls"`
	Cleaned         bool         `json:"cleaned"`
}

// Transformer runs the cleaning sequence over a raw table.
type Transformer struct {
	raw      *table.Table
	clean    *table.Table
	log      []StepResult
	sentinel string
	logger   *slog.Logger
	metrics  MetricsCollector
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transformer) {
		t.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics MetricsCollector) Option {
	return func(t *Transformer) {
		t.metrics = metrics
	}
}

// WithSentinel overrides the text used for missing headlines.
func WithSentinel(sentinel string) Option {
	return func(t *Transformer) {
		t.sentinel = sentinel
	}
}

// New creates a Transformer over a private copy of raw.
func New(raw *table.Table, opts ...Option) *Transformer {
	t := &Transformer{
		raw:      raw.Clone(),
		sentinel: DefaultSentinel,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TransformAll runs every step in order and validates the result.
// Text normalization can make rows that differed only in case or spacing
// identical, so duplicates are removed once more when that happens.
func (t *Transformer) TransformAll() (*table.Table, error) {
	t.log = nil
	t.clean = nil

	current := t.raw
	for _, step := range Steps(t.sentinel) {
		next, err := t.apply(step, current)
		if err != nil {
			return nil, err
		}
		current = next
	}

	if hasDuplicates(current) {
		next, err := t.apply(Step{Name: StepRemoveDuplicates, Fn: RemoveDuplicates}, current)
		if err != nil {
			return nil, err
		}
		current = next
	}

	if err := validator.ValidateTable(current); err != nil {
		return nil, fmt.Errorf("clean data failed validation: %w", err)
	}

	t.clean = current
	t.logger.Info("transformation completed",
		"rows_before", t.raw.NumRows(),
		"rows_after", current.NumRows(),
		"columns", current.NumCols())
	return current, nil
}

func (t *Transformer) apply(step Step, in *table.Table) (*table.Table, error) {
	out, result, err := step.Fn(in)
	if err != nil {
		t.logger.Error("transformation step failed", "step", step.Name, "error", err)
		return nil, fmt.Errorf("step %s: %w", step.Name, err)
	}

	t.log = append(t.log, result)
	if t.metrics != nil {
		t.metrics.AddRowsRemoved(step.Name, result.RowsRemoved())
	}
	t.logger.Debug("transformation step applied",
		"step", step.Name,
		"description", result.Description,
		"rows", result.RowsAfter,
		"nulls", result.NullsAfter)
	return out, nil
}

func hasDuplicates(t *table.Table) bool {
	seen := make(map[string]struct{}, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		key := t.RowKey(i)
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}

// Log returns the step results of the last run.
func (t *Transformer) Log() []StepResult {
	out := make([]StepResult, len(t.log))
	copy(out, t.log)
	return out
}

// Report summarizes the last run. Before a run the clean figures describe
// the raw table.
func (t *Transformer) Report() Report {
	data := t.CleanData()
	return Report{
		Transformations: t.Log(),
		OriginalShape:   shapeOf(t.raw),
		CleanShape:      shapeOf(data),
		OriginalNulls:   t.raw.NullCount(),
		CleanNulls:      data.NullCount(),
		Cleaned:         t.clean != nil,
	}
}

// CleanData returns the clean table, or the raw table if TransformAll has
// not completed.
func (t *Transformer) CleanData() *table.Table {
	if t.clean != nil {
		return t.clean
	}
	return t.raw
}
