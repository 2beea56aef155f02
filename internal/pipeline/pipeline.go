package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jittakal/sentimentetl/internal/config/dto"
	encoderimpl "github.com/jittakal/sentimentetl/internal/encoder"
	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/internal/extract"
	"github.com/jittakal/sentimentetl/internal/load"
	"github.com/jittakal/sentimentetl/internal/notify"
	"github.com/jittakal/sentimentetl/internal/report"
	"github.com/jittakal/sentimentetl/internal/storage"
	"github.com/jittakal/sentimentetl/internal/transform"
	"github.com/jittakal/sentimentetl/pkg/encoder"
	"github.com/jittakal/sentimentetl/pkg/table"
)

const (
	previewCols  = 4
	previewWidth = 48
	reportSuffix = "_summary.xlsx"

	notifyTimeout = 30 * time.Second
)

// Uploader publishes run artifacts.
type Uploader interface {
	PublishAll(ctx context.Context, dataset string, runTime time.Time, runID string, paths []string) ([]storage.UploadResult, error)
	Backend() string
	Close() error
}

// Notifier announces the run outcome.
type Notifier interface {
	Notify(ctx context.Context, summary notify.RunSummary) error
	Close() error
}

// Result collects everything a run produced.
type Result struct {
	RunID      string
	Encoding   string
	RawShape   transform.Shape
	Transform  transform.Report
	Load       *load.Report
	Stats      *report.Stats
	ReportPath string
	Uploads    []storage.UploadResult
	Notified   bool
	NotifyErr  error
	Phases     []PhaseResult
	Duration   time.Duration
}

// Pipeline runs all phases for one configuration.
type Pipeline struct {
	cfg      *dto.ApplicationConfig
	rc       *RunContext
	uploader Uploader
	notifier Notifier
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithUploader replaces the uploader built from storage config.
func WithUploader(u Uploader) Option {
	return func(p *Pipeline) { p.uploader = u }
}

// WithNotifier replaces the notifier built from notify config.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// New creates a Pipeline.
func New(cfg *dto.ApplicationConfig, rc *RunContext, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, rc: rc}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the phases in order. The first failing phase stops the run
// and is returned as a *errors.PhaseError. Notification runs last whatever
// the outcome and its failure never fails the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	rc := p.rc
	res := &Result{RunID: rc.ID}

	rc.Printer.Header("SENTIMENT ETL PIPELINE")
	rc.Printer.Bullet("run", rc.ID)
	rc.Printer.Bullet("started", rc.StartedAt.Format(time.RFC3339))
	rc.Logger.Info("pipeline started", "input", p.cfg.Extract.InputPath, "output_dir", p.cfg.Load.OutputDir)

	runErr := p.runPhases(ctx, res)

	p.notifyPhase(ctx, res, runErr)

	if p.cfg.Observability.Metrics.Enabled {
		if err := rc.Metrics.WriteTextfile(p.cfg.Observability.Metrics.TextfilePath); err != nil {
			rc.Logger.Warn("failed to write metrics textfile", "error", err)
		}
	}

	res.Phases = rc.Phases()
	res.Duration = rc.Elapsed()
	p.printSummary(res, runErr)

	if runErr != nil {
		rc.Logger.Error("pipeline failed", "phase", errors.PhaseOf(runErr), "error", runErr)
		return res, runErr
	}
	rc.Logger.Info("pipeline completed", "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func (p *Pipeline) runPhases(ctx context.Context, res *Result) error {
	var raw, clean *table.Table

	phases := []struct {
		name string
		run  func() (string, error)
		skip bool
	}{
		{name: PhaseExtract, run: func() (detail string, err error) {
			raw, detail, err = p.extract(res)
			return detail, err
		}},
		{name: PhaseTransform, run: func() (detail string, err error) {
			clean, detail, err = p.transform(raw, res)
			return detail, err
		}},
		{name: PhaseLoad, run: func() (string, error) { return p.load(ctx, clean, res) }},
		{name: PhaseReport, run: func() (string, error) { return p.report(clean, res) }, skip: !p.cfg.Report.Enabled},
		{name: PhasePublish, run: func() (string, error) { return p.publish(ctx, res) }, skip: !p.publishEnabled()},
	}

	var runErr error
	for _, ph := range phases {
		if ph.skip || runErr != nil {
			p.rc.Record(PhaseResult{Phase: ph.name, Status: StatusSkipped})
			continue
		}
		if err := ctx.Err(); err != nil {
			p.rc.Record(PhaseResult{Phase: ph.name, Status: StatusFailed, Err: err})
			runErr = &errors.PhaseError{Phase: ph.name, Err: err}
			continue
		}
		runErr = p.runPhase(ph.name, ph.run)
	}
	return runErr
}

// runPhase times fn, records the result and wraps a failure in PhaseError.
func (p *Pipeline) runPhase(name string, fn func() (string, error)) error {
	p.rc.Printer.Header("PHASE " + name)
	start := time.Now()

	detail, err := fn()
	result := PhaseResult{Phase: name, Status: StatusOK, Duration: time.Since(start), Detail: detail}
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
	}
	p.rc.Record(result)

	p.rc.Logger.Info("phase finished",
		"phase", name,
		"status", result.Status,
		"duration_ms", result.Duration.Milliseconds(),
	)
	if err != nil {
		p.rc.Printer.Linef("FAILED: %v", err)
		return &errors.PhaseError{Phase: name, Err: err}
	}
	p.rc.Printer.Linef("done in %s", result.Duration.Round(time.Millisecond))
	return nil
}

func (p *Pipeline) extract(res *Result) (*table.Table, string, error) {
	ex := extract.New(p.cfg.Extract.InputPath,
		extract.WithEncodings(p.cfg.Extract.Encodings...),
		extract.WithLogger(p.rc.Logger),
	)
	raw, err := ex.Extract()
	if err != nil {
		return nil, "", err
	}
	info, err := ex.Info()
	if err != nil {
		return nil, "", err
	}

	res.Encoding = ex.Encoding()
	res.RawShape = transform.Shape{Rows: info.Rows, Columns: info.Columns}
	p.rc.Metrics.SetStageRows("raw", info.Rows)

	pr := p.rc.Printer
	pr.Bullet("file", ex.Path())
	pr.Bullet("encoding", res.Encoding)
	pr.Bullet("rows", info.Rows)
	pr.Bullet("columns", info.Columns)
	pr.Bullet("memory", fmt.Sprintf("%.2f MB", info.MemoryMB))
	if n := p.cfg.Extract.PreviewRows; n > 0 {
		preview, err := ex.Preview(n)
		if err != nil {
			return nil, "", err
		}
		pr.Linef("")
		pr.Table(preview, previewCols, previewWidth)
	}

	return raw, fmt.Sprintf("%d rows x %d columns (%s)", info.Rows, info.Columns, res.Encoding), nil
}

func (p *Pipeline) transform(raw *table.Table, res *Result) (*table.Table, string, error) {
	opts := []transform.Option{
		transform.WithLogger(p.rc.Logger),
		transform.WithMetrics(p.rc.Metrics),
	}
	if s := p.cfg.Transform.TextSentinel; s != "" {
		opts = append(opts, transform.WithSentinel(s))
	}

	tr := transform.New(raw, opts...)
	clean, err := tr.TransformAll()
	if err != nil {
		return nil, "", err
	}
	res.Transform = tr.Report()
	p.rc.Metrics.SetStageRows("clean", clean.NumRows())

	pr := p.rc.Printer
	for i, step := range res.Transform.Transformations {
		pr.Linef("   %d. %-22s %s", i+1, step.Step, step.Description)
	}
	pr.Bullet("original shape", fmt.Sprintf("%d x %d", res.Transform.OriginalShape.Rows, res.Transform.OriginalShape.Columns))
	pr.Bullet("clean shape", fmt.Sprintf("%d x %d", res.Transform.CleanShape.Rows, res.Transform.CleanShape.Columns))
	pr.Bullet("nulls", fmt.Sprintf("%d -> %d", res.Transform.OriginalNulls, res.Transform.CleanNulls))
	if n := p.cfg.Extract.PreviewRows; n > 0 {
		pr.Linef("")
		pr.Table(clean.Head(n), previewCols, previewWidth)
	}

	return clean, fmt.Sprintf("%d -> %d rows", res.Transform.OriginalShape.Rows, clean.NumRows()), nil
}

func (p *Pipeline) load(ctx context.Context, clean *table.Table, res *Result) (string, error) {
	formats := make([]encoder.Format, 0, len(p.cfg.Load.Formats))
	for _, name := range p.cfg.Load.Formats {
		f, err := encoderimpl.ParseFormat(name)
		if err != nil {
			return "", err
		}
		formats = append(formats, f)
	}

	factory := encoderimpl.NewFactory(encoderimpl.FactoryConfig{
		ParquetCompression: p.cfg.Parquet.Compression,
		RowGroupRows:       p.cfg.Parquet.RowGroupRows,
		AvroCodec:          p.cfg.Avro.Codec,
		TableName:          p.cfg.Load.TableName,
		SQLiteBatchRows:    p.cfg.Load.SQLiteBatchRows,
	})
	loader := load.New(load.Config{
		OutputDir: p.cfg.Load.OutputDir,
		BaseName:  p.cfg.Load.BaseName,
		Formats:   formats,
	}, load.WithLogger(p.rc.Logger), load.WithMetrics(p.rc.Metrics), load.WithFactory(factory))

	lr, err := loader.LoadAll(ctx, clean)
	res.Load = lr

	pr := p.rc.Printer
	for _, r := range lr.Results {
		if r.OK() {
			pr.Linef("   ok    %-8s %s (%s, %d rows)", r.Format, r.Path, humanBytes(r.SizeBytes), r.Rows)
		} else {
			pr.Linef("   FAIL  %-8s %v", r.Format, r.Err)
		}
	}
	detail := fmt.Sprintf("%d/%d formats written", len(lr.Paths()), len(formats))
	pr.Bullet("successful loads", detail)
	return detail, err
}

func (p *Pipeline) report(clean *table.Table, res *Result) (string, error) {
	stats, err := report.Summarize(clean, p.cfg.Transform.TextSentinel)
	if err != nil {
		return "", err
	}
	path := p.cfg.Load.Path(reportSuffix)
	if err := report.WriteWorkbook(path, stats); err != nil {
		return "", err
	}
	res.Stats = stats
	res.ReportPath = path

	pr := p.rc.Printer
	pr.Bullet("period", fmt.Sprintf("%s .. %s", stats.PeriodStart.Format("2006-01-02"), stats.PeriodEnd.Format("2006-01-02")))
	pr.Bullet("positive", fmt.Sprintf("%d (%.1f%%)", stats.Positive, stats.PositiveShare))
	pr.Bullet("negative", fmt.Sprintf("%d (%.1f%%)", stats.Negative, stats.NegativeShare))
	pr.Bullet("completeness", fmt.Sprintf("%.2f%%", stats.Completeness))
	pr.Bullet("workbook", path)
	return path, nil
}

func (p *Pipeline) publishEnabled() bool {
	return p.uploader != nil || (p.cfg.Storage.Backend != "" && p.cfg.Storage.Backend != storage.BackendNone)
}

func (p *Pipeline) publish(ctx context.Context, res *Result) (string, error) {
	if p.uploader == nil {
		u, err := storage.NewUploaderFromConfig(ctx, p.cfg.Storage, p.cfg.Processing, p.rc.Logger, p.rc.Metrics)
		if err != nil {
			return "", err
		}
		if u == nil {
			return "no storage backend", nil
		}
		p.uploader = u
	}
	defer func() {
		if err := p.uploader.Close(); err != nil {
			p.rc.Logger.Warn("failed to close uploader", "error", err)
		}
	}()

	var paths []string
	if res.Load != nil {
		paths = append(paths, res.Load.Paths()...)
	}
	if res.ReportPath != "" {
		paths = append(paths, res.ReportPath)
	}

	uploads, err := p.uploader.PublishAll(ctx, p.cfg.Load.BaseName, p.rc.StartedAt, p.rc.ID, paths)
	res.Uploads = uploads

	ok := 0
	for _, u := range uploads {
		if u.OK() {
			ok++
			p.rc.Printer.Linef("   ok    %s -> %s", u.LocalPath, u.ObjectPath)
		} else {
			p.rc.Printer.Linef("   FAIL  %s: %v", u.LocalPath, u.Err)
		}
	}
	return fmt.Sprintf("%d/%d artifacts published to %s", ok, len(uploads), p.uploader.Backend()), err
}

func (p *Pipeline) notifyPhase(ctx context.Context, res *Result, runErr error) {
	if p.notifier == nil && !p.cfg.Notify.Enabled {
		p.rc.Record(PhaseResult{Phase: PhaseNotify, Status: StatusSkipped})
		return
	}

	// A cancelled run still announces its failure.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	start := time.Now()
	err := p.sendNotification(nctx, res, runErr)
	result := PhaseResult{Phase: PhaseNotify, Status: StatusOK, Duration: time.Since(start), Detail: p.cfg.Notify.Topic}
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		res.NotifyErr = err
		p.rc.Logger.Warn("run notification failed", "error", err)
	} else {
		res.Notified = true
	}
	p.rc.Record(result)
}

func (p *Pipeline) sendNotification(ctx context.Context, res *Result, runErr error) error {
	if p.notifier == nil {
		n, err := notify.New(p.cfg.Notify, p.rc.Logger, p.rc.Metrics)
		if err != nil {
			return err
		}
		p.notifier = n
	}
	defer func() {
		if err := p.notifier.Close(); err != nil {
			p.rc.Logger.Warn("failed to close notifier", "error", err)
		}
	}()

	return p.notifier.Notify(ctx, p.summary(res, runErr))
}

// summary builds the notification payload from the run so far.
func (p *Pipeline) summary(res *Result, runErr error) notify.RunSummary {
	now := time.Now().UTC()
	s := notify.RunSummary{
		RunID:         p.rc.ID,
		Status:        notify.StatusSucceeded,
		InputPath:     p.cfg.Extract.InputPath,
		Encoding:      res.Encoding,
		RowsExtracted: res.RawShape.Rows,
		RowsClean:     res.Transform.CleanShape.Rows,
		StartedAt:     p.rc.StartedAt,
		FinishedAt:    now,
		DurationMS:    now.Sub(p.rc.StartedAt).Milliseconds(),
	}
	if runErr != nil {
		s.Status = notify.StatusFailed
		s.FailedPhase = errors.PhaseOf(runErr)
		s.Error = runErr.Error()
	}

	published := make(map[string]string, len(res.Uploads))
	for _, u := range res.Uploads {
		if u.OK() {
			published[u.LocalPath] = u.ObjectPath
		}
	}
	if res.Load != nil {
		for _, r := range res.Load.Results {
			if !r.OK() {
				continue
			}
			s.Artifacts = append(s.Artifacts, notify.Artifact{
				Format:    string(r.Format),
				Path:      r.Path,
				Rows:      r.Rows,
				SizeBytes: r.SizeBytes,
				Published: published[r.Path],
			})
		}
	}
	if res.ReportPath != "" {
		s.Artifacts = append(s.Artifacts, notify.Artifact{
			Format:    "xlsx",
			Path:      res.ReportPath,
			Published: published[res.ReportPath],
		})
	}
	return s
}

func (p *Pipeline) printSummary(res *Result, runErr error) {
	pr := p.rc.Printer
	if runErr != nil {
		pr.Header("PIPELINE FAILED")
		var pe *errors.PhaseError
		if stderrors.As(runErr, &pe) {
			pr.Bullet("phase", pe.Phase)
			pr.Bullet("error", pe.Err)
		} else {
			pr.Bullet("error", runErr)
		}
	} else {
		pr.Header("PIPELINE COMPLETED")
		pr.Bullet("records processed", res.Transform.CleanShape.Rows)
		pr.Bullet("columns", res.Transform.CleanShape.Columns)
	}

	for _, ph := range res.Phases {
		line := fmt.Sprintf("%-10s %-8s %8s", ph.Phase, ph.Status, ph.Duration.Round(time.Millisecond))
		if ph.Detail != "" {
			line += "  " + ph.Detail
		}
		pr.Linef("   %s", line)
	}
	pr.Bullet("elapsed", res.Duration.Round(time.Millisecond))
}
