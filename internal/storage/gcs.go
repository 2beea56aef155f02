package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/jittakal/sentimentetl/internal/errors"
	pkgstorage "github.com/jittakal/sentimentetl/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ pkgstorage.Publisher = (*GCSPublisher)(nil)

// GCSConfig contains Google Cloud Storage configuration.
type GCSConfig struct {
	Bucket               string
	ProjectID            string
	CredentialsFile      string
	CredentialsJSON      string
	Endpoint             string
	UseDefaultCredential bool
}

// GCSPublisher implements storage.Publisher for Google Cloud Storage.
// It supports service account files, inline JSON and application default
// credentials.
type GCSPublisher struct {
	client  *storage.Client
	bucket  string
	logger  *slog.Logger
	metrics MetricsCollector
	closed  atomic.Bool
}

// clientOptions selects the authentication method for cfg.
func clientOptions(cfg GCSConfig, logger *slog.Logger) []option.ClientOption {
	var clientOpts []option.ClientOption
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.UseDefaultCredential:
		// GOOGLE_APPLICATION_CREDENTIALS or the attached service account
		logger.Info("using default GCP credentials")
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		logger.Info("using GCP credentials from JSON string")
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
		logger.Info("using GCP credentials from file", "file", cfg.CredentialsFile)
	default:
		logger.Info("no explicit credentials provided, using default GCP credentials")
	}
	return clientOpts
}

// NewGCSPublisher creates a new Google Cloud Storage publisher.
func NewGCSPublisher(ctx context.Context, cfg GCSConfig, logger *slog.Logger, metrics MetricsCollector) (*GCSPublisher, error) {
	client, err := storage.NewClient(ctx, clientOptions(cfg, logger)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	logger.Info("GCS publisher created",
		"bucket", cfg.Bucket,
		"project_id", cfg.ProjectID,
	)

	return &GCSPublisher{
		client:  client,
		bucket:  cfg.Bucket,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Publish streams localPath into the object at objectPath (gs://bucket/key
// or a bare key).
func (p *GCSPublisher) Publish(ctx context.Context, localPath, objectPath string) (int64, error) {
	if p.closed.Load() {
		return 0, errors.ErrPublisherClosed
	}

	startTime := time.Now()

	_, key := splitObjectPath(objectPath, "gs")

	file, err := os.Open(localPath)
	if err != nil {
		p.fail("file_open")
		if os.IsNotExist(err) {
			return 0, &errors.FileNotFoundError{Path: localPath, Err: err}
		}
		return 0, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer file.Close()

	gcsWriter := p.client.Bucket(p.bucket).Object(key).NewWriter(ctx)
	gcsWriter.ContentType = contentType(localPath)

	bytesWritten, err := io.Copy(gcsWriter, file)
	if err != nil {
		p.fail("upload")
		gcsWriter.Close()
		return 0, &errors.StorageError{Operation: "upload", Path: objectPath, Err: err}
	}

	// Close finalizes the upload
	if err := gcsWriter.Close(); err != nil {
		p.fail("close")
		return 0, &errors.StorageError{Operation: "upload", Path: objectPath, Err: err}
	}

	duration := time.Since(startTime)

	p.logger.Info("published artifact to GCS",
		"bucket", p.bucket,
		"object", key,
		"bytes", bytesWritten,
		"duration_ms", duration.Milliseconds(),
	)

	if p.metrics != nil {
		p.metrics.IncUploads("gcs", "success")
		p.metrics.ObserveUploadDuration("gcs", duration.Seconds())
	}

	return bytesWritten, nil
}

func (p *GCSPublisher) fail(op string) {
	if p.metrics != nil {
		p.metrics.IncStorageErrors("gcs", op)
	}
}

// Close closes the GCS client.
func (p *GCSPublisher) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.logger.Info("closing GCS publisher")
	return p.client.Close()
}
