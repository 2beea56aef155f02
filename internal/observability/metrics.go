package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a pipeline run.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	PhaseDuration *prometheus.HistogramVec
	StageRows     *prometheus.GaugeVec
	RowsRemoved   *prometheus.CounterVec

	// Load metrics
	FilesWritten      *prometheus.CounterVec
	FileWriteDuration *prometheus.HistogramVec
	FileSize          *prometheus.HistogramVec
	LoadErrors        *prometheus.CounterVec

	// Publish metrics
	Uploads        *prometheus.CounterVec
	UploadDuration *prometheus.HistogramVec
	StorageErrors  *prometheus.CounterVec

	// Notify metrics
	Notifications *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		PhaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentimentetl_phase_duration_seconds",
				Help:    "Duration of pipeline phases",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"phase", "status"},
		),
		StageRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sentimentetl_rows",
				Help: "Number of rows at each pipeline stage",
			},
			[]string{"stage"},
		),
		RowsRemoved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentimentetl_rows_removed_total",
				Help: "Rows removed by each transform step",
			},
			[]string{"step"},
		),

		FilesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentimentetl_files_written_total",
				Help: "Total number of output files written",
			},
			[]string{"format", "status"},
		),
		FileWriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentimentetl_file_write_duration_seconds",
				Help:    "Duration of output file writes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		),
		FileSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentimentetl_file_size_bytes",
				Help:    "Size of output files",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to 256MB
			},
			[]string{"format"},
		),
		LoadErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentimentetl_load_errors_total",
				Help: "Total number of failed output writes",
			},
			[]string{"format"},
		),

		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentimentetl_uploads_total",
				Help: "Total number of artifact uploads",
			},
			[]string{"backend", "status"},
		),
		UploadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentimentetl_upload_duration_seconds",
				Help:    "Duration of artifact uploads",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentimentetl_storage_errors_total",
				Help: "Total number of storage errors",
			},
			[]string{"backend", "error_type"},
		),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentimentetl_notifications_total",
				Help: "Total number of run notifications sent",
			},
			[]string{"status"},
		),
	}
}

// ObservePhaseDuration observes the duration of a pipeline phase.
func (m *Metrics) ObservePhaseDuration(phase, status string, seconds float64) {
	m.PhaseDuration.WithLabelValues(phase, status).Observe(seconds)
}

// SetStageRows records the row count after a stage.
func (m *Metrics) SetStageRows(stage string, rows int) {
	m.StageRows.WithLabelValues(stage).Set(float64(rows))
}

// AddRowsRemoved adds to the rows removed counter of a transform step.
func (m *Metrics) AddRowsRemoved(step string, rows int) {
	if rows > 0 {
		m.RowsRemoved.WithLabelValues(step).Add(float64(rows))
	}
}

// IncFilesWritten increments files written counter.
func (m *Metrics) IncFilesWritten(format string, status string) {
	m.FilesWritten.WithLabelValues(format, status).Inc()
}

// ObserveFileSize observes file size.
func (m *Metrics) ObserveFileSize(format string, size float64) {
	m.FileSize.WithLabelValues(format).Observe(size)
}

// ObserveFileWriteDuration observes file write duration.
func (m *Metrics) ObserveFileWriteDuration(format string, seconds float64) {
	m.FileWriteDuration.WithLabelValues(format).Observe(seconds)
}

// IncLoadErrors increments load errors counter.
func (m *Metrics) IncLoadErrors(format string) {
	m.LoadErrors.WithLabelValues(format).Inc()
}

// IncUploads increments uploads counter.
func (m *Metrics) IncUploads(backend string, status string) {
	m.Uploads.WithLabelValues(backend, status).Inc()
}

// ObserveUploadDuration observes upload duration.
func (m *Metrics) ObserveUploadDuration(backend string, seconds float64) {
	m.UploadDuration.WithLabelValues(backend).Observe(seconds)
}

// IncStorageErrors increments storage errors counter.
func (m *Metrics) IncStorageErrors(backend string, operation string) {
	m.StorageErrors.WithLabelValues(backend, operation).Inc()
}

// IncNotifications increments notifications counter.
func (m *Metrics) IncNotifications(status string) {
	m.Notifications.WithLabelValues(status).Inc()
}

// WriteTextfile writes all gathered metrics to path in the Prometheus text
// exposition format, for collection by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
