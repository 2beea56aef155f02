// Package notify announces finished pipeline runs as CloudEvents on a
// Kafka topic.
package notify

import (
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Event types and defaults.
const (
	EventTypeCompleted = "com.jittakal.sentimentetl.run.completed"
	EventTypeFailed    = "com.jittakal.sentimentetl.run.failed"
	DefaultSource      = "sentimentetl"
	ContentTypeJSON    = "application/json"
)

// Run status values.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Artifact describes one output file of a run.
type Artifact struct {
	Format    string `json:"format"`
	Path      string `json:"path"`
	Rows      int    `json:"rows"`
	SizeBytes int64  `json:"size_bytes"`
	Published string `json:"published,omitempty"`
}

// RunSummary is the event payload.
type RunSummary struct {
	RunID         string     `json:"run_id"`
	Status        string     `json:"status"`
	FailedPhase   string     `json:"failed_phase,omitempty"`
	Error         string     `json:"error,omitempty"`
	InputPath     string     `json:"input_path"`
	Encoding      string     `json:"encoding,omitempty"`
	RowsExtracted int        `json:"rows_extracted"`
	RowsClean     int        `json:"rows_clean"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
	DurationMS    int64      `json:"duration_ms"`
	Artifacts     []Artifact `json:"artifacts,omitempty"`
}

// Failed reports whether the run failed.
func (s RunSummary) Failed() bool { return s.Status == StatusFailed }

// NewEvent wraps summary in a CloudEvent. The event ID is the run ID so
// redelivered notifications of one run deduplicate downstream.
func NewEvent(source string, summary RunSummary) (cloudevents.Event, error) {
	if source == "" {
		source = DefaultSource
	}

	eventType := EventTypeCompleted
	if summary.Failed() {
		eventType = EventTypeFailed
	}

	event := cloudevents.NewEvent()
	event.SetSpecVersion(cloudevents.VersionV1)
	event.SetID(summary.RunID)
	event.SetType(eventType)
	event.SetSource(source)
	event.SetSubject(summary.InputPath)
	event.SetTime(summary.FinishedAt)

	if err := event.SetData(ContentTypeJSON, summary); err != nil {
		return event, fmt.Errorf("failed to set event data: %w", err)
	}
	if err := event.Validate(); err != nil {
		return event, fmt.Errorf("invalid event: %w", err)
	}
	return event, nil
}
