package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jittakal/sentimentetl/internal/config/dto"
	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/internal/generator"
	"github.com/jittakal/sentimentetl/internal/notify"
	"github.com/jittakal/sentimentetl/internal/observability"
	"github.com/jittakal/sentimentetl/internal/storage"
)

type fakeUploader struct {
	mu      sync.Mutex
	paths   []string
	fail    map[string]error
	closed  bool
	dataset string
}

func (f *fakeUploader) PublishAll(_ context.Context, dataset string, _ time.Time, runID string, paths []string) ([]storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataset = dataset
	f.paths = append(f.paths, paths...)

	results := make([]storage.UploadResult, len(paths))
	var errs []error
	for i, p := range paths {
		results[i] = storage.UploadResult{LocalPath: p, Attempts: 1}
		if err := f.fail[filepath.Base(p)]; err != nil {
			results[i].Err = err
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		results[i].ObjectPath = "mem://bucket/" + dataset + "/run=" + runID + "/" + filepath.Base(p)
	}
	return results, stderrors.Join(errs...)
}

func (f *fakeUploader) Backend() string { return "mem" }

func (f *fakeUploader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeNotifier struct {
	summaries []notify.RunSummary
	err       error
	closed    bool
}

func (f *fakeNotifier) Notify(_ context.Context, s notify.RunSummary) error {
	f.summaries = append(f.summaries, s)
	return f.err
}

func (f *fakeNotifier) Close() error {
	f.closed = true
	return nil
}

// writeInput generates a sample file and returns its path and stats.
func writeInput(t *testing.T, dir string) (string, *generator.Stats) {
	t.Helper()
	cfg := generator.DefaultConfig()
	cfg.Rows, cfg.Duplicates, cfg.BadDates, cfg.NullRate = 40, 3, 2, 0.03
	cfg.Encoding = generator.EncodingLatin1
	cfg.Seed = 7

	g, err := generator.New(cfg, observability.NopLogger())
	if err != nil {
		t.Fatalf("generator.New() error = %v", err)
	}
	path := filepath.Join(dir, "input.csv")
	stats, err := g.WriteFile(path)
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path, stats
}

func testConfig(input, outDir string) *dto.ApplicationConfig {
	return &dto.ApplicationConfig{
		Application: dto.ApplicationInfo{Name: "sentimentetl"},
		Extract: dto.ExtractConfig{
			InputPath:   input,
			Encodings:   []string{"utf-8", "latin-1"},
			PreviewRows: 3,
		},
		Transform: dto.TransformConfig{TextSentinel: "Unknown"},
		Load: dto.LoadConfig{
			OutputDir:       outDir,
			BaseName:        "clean",
			TableName:       "stock_sentiment",
			Formats:         []string{"csv", "parquet", "sqlite", "avro"},
			SQLiteBatchRows: 50,
		},
		Parquet: dto.ParquetConfig{Compression: "snappy", RowGroupRows: 100},
		Avro:    dto.AvroConfig{Codec: "null"},
		Report:  dto.ReportConfig{Enabled: true},
		Storage: dto.StorageConfig{Backend: storage.BackendNone},
		Observability: dto.ObservabilityConfig{
			Metrics: dto.MetricsConfig{Enabled: true, TextfilePath: filepath.Join(outDir, "run.prom")},
		},
	}
}

func statuses(phases []PhaseResult) map[string]string {
	out := make(map[string]string, len(phases))
	for _, p := range phases {
		out[p.Phase] = p.Status
	}
	return out
}

func TestPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	input, stats := writeInput(t, dir)
	cfg := testConfig(input, filepath.Join(dir, "out"))

	var out bytes.Buffer
	rc := NewRunContext(observability.NopLogger(), nil, &out)
	up := &fakeUploader{}
	nt := &fakeNotifier{}

	res, err := New(cfg, rc, WithUploader(up), WithNotifier(nt)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Encoding != "latin-1" {
		t.Errorf("Encoding = %s, want latin-1", res.Encoding)
	}
	if res.RawShape.Rows != stats.Rows {
		t.Errorf("raw rows = %d, want %d", res.RawShape.Rows, stats.Rows)
	}
	if got := res.Transform.CleanShape.Rows; got != stats.ExpectedCleanRows() {
		t.Errorf("clean rows = %d, want %d", got, stats.ExpectedCleanRows())
	}
	if n := len(res.Load.Paths()); n != 4 {
		t.Errorf("loaded files = %d, want 4", n)
	}
	for _, p := range append(res.Load.Paths(), res.ReportPath, cfg.Observability.Metrics.TextfilePath) {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing artifact %s: %v", p, err)
		}
	}

	for _, w := range res.Stats.TopWords {
		if w.Word == "unknown" {
			t.Errorf("text sentinel counted in top words: %+v", w)
		}
	}

	for phase, status := range statuses(res.Phases) {
		if status != StatusOK {
			t.Errorf("phase %s status = %s, want ok", phase, status)
		}
	}
	if len(res.Phases) != 6 {
		t.Errorf("phases = %d, want 6", len(res.Phases))
	}

	if len(up.paths) != 5 || !up.closed || up.dataset != "clean" {
		t.Errorf("uploader paths = %v closed = %v dataset = %q", up.paths, up.closed, up.dataset)
	}

	if len(nt.summaries) != 1 || !nt.closed {
		t.Fatalf("notifier summaries = %d closed = %v", len(nt.summaries), nt.closed)
	}
	s := nt.summaries[0]
	if s.Status != notify.StatusSucceeded || s.RunID != rc.ID || s.RowsClean != stats.ExpectedCleanRows() {
		t.Errorf("summary = %+v", s)
	}
	if len(s.Artifacts) != 5 {
		t.Fatalf("artifacts = %d, want 5", len(s.Artifacts))
	}
	for _, a := range s.Artifacts {
		if !strings.HasPrefix(a.Published, "mem://bucket/clean/") {
			t.Errorf("artifact %s published = %q", a.Format, a.Published)
		}
	}
	if !res.Notified {
		t.Error("Notified = false")
	}

	text := out.String()
	for _, want := range []string{"PHASE extract", "PHASE publish", "PIPELINE COMPLETED", "encoding: latin-1"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestPipeline_MissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(filepath.Join(dir, "absent.csv"), dir)
	up := &fakeUploader{}
	nt := &fakeNotifier{}

	var out bytes.Buffer
	res, err := New(cfg, NewRunContext(nil, nil, &out), WithUploader(up), WithNotifier(nt)).Run(context.Background())
	if err == nil {
		t.Fatal("Run() expected error")
	}
	if errors.PhaseOf(err) != PhaseExtract {
		t.Errorf("PhaseOf() = %q, want extract", errors.PhaseOf(err))
	}
	var fnf *errors.FileNotFoundError
	if !stderrors.As(err, &fnf) {
		t.Errorf("error = %v, want FileNotFoundError", err)
	}

	want := map[string]string{
		PhaseExtract:   StatusFailed,
		PhaseTransform: StatusSkipped,
		PhaseLoad:      StatusSkipped,
		PhaseReport:    StatusSkipped,
		PhasePublish:   StatusSkipped,
		PhaseNotify:    StatusOK,
	}
	got := statuses(res.Phases)
	for phase, status := range want {
		if got[phase] != status {
			t.Errorf("phase %s = %s, want %s", phase, got[phase], status)
		}
	}

	if len(up.paths) != 0 {
		t.Errorf("uploader called with %v", up.paths)
	}
	if len(nt.summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(nt.summaries))
	}
	s := nt.summaries[0]
	if s.Status != notify.StatusFailed || s.FailedPhase != PhaseExtract || s.Error == "" {
		t.Errorf("summary = %+v", s)
	}
	if !strings.Contains(out.String(), "PIPELINE FAILED") {
		t.Error("output missing failure banner")
	}
}

func TestPipeline_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	input, _ := writeInput(t, dir)
	cfg := testConfig(input, dir)
	cfg.Load.Formats = []string{"csv", "xml"}

	_, err := New(cfg, NewRunContext(nil, nil, nil)).Run(context.Background())
	if errors.PhaseOf(err) != PhaseLoad {
		t.Fatalf("PhaseOf() = %q, want load (err = %v)", errors.PhaseOf(err), err)
	}
	if !stderrors.Is(err, errors.ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestPipeline_PublishFailure(t *testing.T) {
	dir := t.TempDir()
	input, _ := writeInput(t, dir)
	cfg := testConfig(input, dir)
	cfg.Report.Enabled = false

	up := &fakeUploader{fail: map[string]error{"clean.parquet": stderrors.New("denied")}}
	nt := &fakeNotifier{}
	res, err := New(cfg, NewRunContext(nil, nil, nil), WithUploader(up), WithNotifier(nt)).Run(context.Background())
	if errors.PhaseOf(err) != PhasePublish {
		t.Fatalf("PhaseOf() = %q, want publish (err = %v)", errors.PhaseOf(err), err)
	}
	if got := statuses(res.Phases)[PhaseReport]; got != StatusSkipped {
		t.Errorf("report status = %s, want skipped", got)
	}
	if len(res.Uploads) != 4 {
		t.Fatalf("uploads = %d, want 4", len(res.Uploads))
	}

	s := nt.summaries[0]
	if s.Status != notify.StatusFailed || s.FailedPhase != PhasePublish {
		t.Errorf("summary = %+v", s)
	}
	for _, a := range s.Artifacts {
		if a.Format == "parquet" && a.Published != "" {
			t.Errorf("failed upload reported as published: %+v", a)
		}
	}
}

func TestPipeline_NotifyFailureKeepsRunGreen(t *testing.T) {
	dir := t.TempDir()
	input, _ := writeInput(t, dir)
	cfg := testConfig(input, dir)
	cfg.Load.Formats = []string{"csv"}

	nt := &fakeNotifier{err: errors.ErrConnectionLost}
	res, err := New(cfg, NewRunContext(nil, nil, nil), WithNotifier(nt)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Notified || !stderrors.Is(res.NotifyErr, errors.ErrConnectionLost) {
		t.Errorf("Notified = %v NotifyErr = %v", res.Notified, res.NotifyErr)
	}
	got := statuses(res.Phases)
	if got[PhaseNotify] != StatusFailed || got[PhasePublish] != StatusSkipped {
		t.Errorf("statuses = %v", got)
	}
}

func TestPipeline_FileBackend(t *testing.T) {
	dir := t.TempDir()
	input, _ := writeInput(t, dir)
	cfg := testConfig(input, filepath.Join(dir, "out"))
	cfg.Load.Formats = []string{"csv", "sqlite"}
	cfg.Storage = dto.StorageConfig{
		Backend:  "file",
		BasePath: "etl",
		File:     dto.FileConfig{BasePath: filepath.Join(dir, "mirror")},
	}
	cfg.Processing = dto.ProcessingConfig{MaxConcurrentUploads: 2, UploadMaxAttempts: 1}

	rc := NewRunContext(nil, nil, nil)
	res, err := New(cfg, rc).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Uploads) != 3 {
		t.Fatalf("uploads = %d, want 3", len(res.Uploads))
	}

	day := rc.StartedAt.Format("2006-01-02")
	for _, name := range []string{"clean.csv", "clean.db", "clean_summary.xlsx"} {
		p := filepath.Join(dir, "mirror", "etl", "clean", "v1", "dt="+day, "run="+rc.ID, name)
		if _, err := os.Stat(p); err != nil {
			t.Errorf("published copy missing: %v", err)
		}
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	input, _ := writeInput(t, dir)
	cfg := testConfig(input, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	nt := &fakeNotifier{}
	_, err := New(cfg, NewRunContext(nil, nil, nil), WithNotifier(nt)).Run(ctx)
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if errors.PhaseOf(err) != PhaseExtract {
		t.Errorf("PhaseOf() = %q, want extract", errors.PhaseOf(err))
	}
	if len(nt.summaries) != 1 || nt.summaries[0].Status != notify.StatusFailed {
		t.Errorf("cancelled run should still be announced: %+v", nt.summaries)
	}
}

func TestRunQuery(t *testing.T) {
	dir := t.TempDir()
	input, stats := writeInput(t, dir)
	cfg := testConfig(input, dir)
	cfg.Load.Formats = []string{"sqlite"}
	cfg.Report.Enabled = false

	if _, err := New(cfg, NewRunContext(nil, nil, nil)).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var out bytes.Buffer
	all, err := RunQuery(context.Background(), cfg, "", NewPrinter(&out))
	if err != nil {
		t.Fatalf("RunQuery() error = %v", err)
	}
	if all.NumRows() != stats.ExpectedCleanRows() {
		t.Errorf("rows = %d, want %d", all.NumRows(), stats.ExpectedCleanRows())
	}
	if !strings.Contains(out.String(), "SELECT * FROM") {
		t.Errorf("output missing default query:\n%s", out.String())
	}

	_, err = RunQuery(context.Background(), cfg, "SELECT nope FROM stock_sentiment", NewPrinter(nil))
	var qe *errors.QueryError
	if !stderrors.As(err, &qe) {
		t.Errorf("RunQuery() error = %v, want QueryError", err)
	}
}
