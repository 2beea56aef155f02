// Package pipeline runs the extract, transform, load, report, publish and
// notify phases for one input file and reports progress per phase.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jittakal/sentimentetl/internal/observability"
)

// Phase names.
const (
	PhaseExtract   = "extract"
	PhaseTransform = "transform"
	PhaseLoad      = "load"
	PhaseReport    = "report"
	PhasePublish   = "publish"
	PhaseNotify    = "notify"
)

// Phase status values.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// PhaseResult records the outcome of one phase.
type PhaseResult struct {
	Phase    string        `json:"phase"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
	Detail   string        `json:"detail,omitempty"`
	Err      error         `json:"-"`
}

// RunContext carries the state of one run through every phase. Its status
// methods may be called from other goroutines while the run progresses.
type RunContext struct {
	ID        string
	StartedAt time.Time
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	Printer   *Printer

	mu     sync.RWMutex
	phases []PhaseResult
}

// NewRunContext creates a run with a fresh ID. A nil logger discards logs
// and nil metrics get a private registry.
func NewRunContext(logger *slog.Logger, metrics *observability.Metrics, out io.Writer) *RunContext {
	id := uuid.NewString()
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}
	return &RunContext{
		ID:        id,
		StartedAt: time.Now().UTC(),
		Logger:    logger.With("run_id", id),
		Metrics:   metrics,
		Printer:   NewPrinter(out),
	}
}

// Record appends a phase result and observes its duration.
func (rc *RunContext) Record(res PhaseResult) {
	rc.mu.Lock()
	rc.phases = append(rc.phases, res)
	rc.mu.Unlock()
	rc.Metrics.ObservePhaseDuration(res.Phase, res.Status, res.Duration.Seconds())
}

// Phase returns the recorded result of a phase.
func (rc *RunContext) Phase(name string) (PhaseResult, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	for _, p := range rc.phases {
		if p.Phase == name {
			return p, true
		}
	}
	return PhaseResult{}, false
}

// Elapsed returns the time since the run started.
func (rc *RunContext) Elapsed() time.Duration {
	return time.Since(rc.StartedAt)
}

// Phases returns a copy of the recorded phase results in order.
func (rc *RunContext) Phases() []PhaseResult {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return append([]PhaseResult(nil), rc.phases...)
}

// Liveness is always true while the process runs.
func (rc *RunContext) Liveness() bool { return true }

// Readiness is false once any phase has failed.
func (rc *RunContext) Readiness(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	for _, p := range rc.phases {
		if p.Status == StatusFailed {
			return false
		}
	}
	return true
}

// GetStatus maps each recorded phase to its status, plus the run ID.
func (rc *RunContext) GetStatus() map[string]string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	status := make(map[string]string, len(rc.phases)+1)
	status["run_id"] = rc.ID
	for _, p := range rc.phases {
		status[p.Phase] = p.Status
	}
	return status
}
