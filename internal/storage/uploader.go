package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/storage"
)

// Defaults for Uploader.
const (
	DefaultMaxConcurrent = 4
	DefaultMaxAttempts   = 3
	DefaultBackoff       = 200 * time.Millisecond
)

// UploadResult is the outcome of publishing one artifact.
type UploadResult struct {
	LocalPath  string
	ObjectPath string
	Bytes      int64
	Attempts   int
	Duration   time.Duration
	Err        error
}

// OK reports whether the artifact was published.
func (r UploadResult) OK() bool { return r.Err == nil }

// Uploader fans artifacts out to a Publisher under a Router prefix.
type Uploader struct {
	publisher     storage.Publisher
	router        storage.Router
	backend       string
	maxConcurrent int
	maxAttempts   int
	backoff       time.Duration
	logger        *slog.Logger
	metrics       MetricsCollector
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithUploadLogger sets the logger.
func WithUploadLogger(logger *slog.Logger) UploaderOption {
	return func(u *Uploader) { u.logger = logger }
}

// WithUploadMetrics sets the metrics collector used for failed uploads.
func WithUploadMetrics(metrics MetricsCollector) UploaderOption {
	return func(u *Uploader) { u.metrics = metrics }
}

// WithMaxConcurrent bounds the number of in-flight uploads.
func WithMaxConcurrent(n int) UploaderOption {
	return func(u *Uploader) {
		if n > 0 {
			u.maxConcurrent = n
		}
	}
}

// WithMaxAttempts sets how many times a retryable failure is attempted.
func WithMaxAttempts(n int) UploaderOption {
	return func(u *Uploader) {
		if n > 0 {
			u.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts; attempt k waits k*d.
func WithBackoff(d time.Duration) UploaderOption {
	return func(u *Uploader) { u.backoff = d }
}

// NewUploader creates an Uploader. backend labels metrics and logs.
func NewUploader(backend string, publisher storage.Publisher, router storage.Router, opts ...UploaderOption) *Uploader {
	u := &Uploader{
		publisher:     publisher,
		router:        router,
		backend:       backend,
		maxConcurrent: DefaultMaxConcurrent,
		maxAttempts:   DefaultMaxAttempts,
		backoff:       DefaultBackoff,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Backend returns the backend name.
func (u *Uploader) Backend() string { return u.backend }

// PublishAll uploads every path under the run prefix. Failures are isolated
// per artifact: all paths are attempted and results keep the input order.
// The returned error joins the per-artifact failures.
func (u *Uploader) PublishAll(ctx context.Context, dataset string, runTime time.Time, runID string, paths []string) ([]UploadResult, error) {
	prefix := u.router.Route(dataset, runTime, runID)
	results := make([]UploadResult, len(paths))

	var g errgroup.Group
	g.SetLimit(u.maxConcurrent)

	for i, path := range paths {
		results[i] = UploadResult{
			LocalPath:  path,
			ObjectPath: prefix + filepath.Base(path),
		}
		g.Go(func() error {
			u.publishOne(ctx, &results[i])
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.LocalPath, r.Err))
		}
	}

	u.logger.Info("publish completed",
		"backend", u.backend,
		"prefix", prefix,
		"artifacts", len(paths),
		"failed", len(errs),
	)

	return results, stderrors.Join(errs...)
}

func (u *Uploader) publishOne(ctx context.Context, r *UploadResult) {
	start := time.Now()
	defer func() { r.Duration = time.Since(start) }()

	for attempt := 1; ; attempt++ {
		r.Attempts = attempt
		n, err := u.publisher.Publish(ctx, r.LocalPath, r.ObjectPath)
		if err == nil {
			r.Bytes = n
			r.Err = nil
			return
		}
		r.Err = err

		if attempt >= u.maxAttempts || !errors.IsRetryable(err) {
			break
		}

		u.logger.Warn("upload failed, retrying",
			"path", r.LocalPath,
			"attempt", attempt,
			"error", err,
		)

		select {
		case <-ctx.Done():
			r.Err = ctx.Err()
			u.recordFailure(r)
			return
		case <-time.After(time.Duration(attempt) * u.backoff):
		}
	}

	u.recordFailure(r)
}

func (u *Uploader) recordFailure(r *UploadResult) {
	u.logger.Error("upload failed",
		"path", r.LocalPath,
		"object", r.ObjectPath,
		"attempts", r.Attempts,
		"error", r.Err,
	)
	if u.metrics != nil {
		u.metrics.IncUploads(u.backend, "failure")
	}
}

// Close closes the underlying publisher.
func (u *Uploader) Close() error {
	return u.publisher.Close()
}
