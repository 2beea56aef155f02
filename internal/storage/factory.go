package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jittakal/sentimentetl/internal/config/dto"
	"github.com/jittakal/sentimentetl/pkg/storage"
)

// BackendNone disables publishing.
const BackendNone = "none"

// NewPublisher creates the publisher and router for cfg.Backend.
// The "none" backend returns nil for both.
func NewPublisher(ctx context.Context, cfg dto.StorageConfig, logger *slog.Logger, metrics MetricsCollector) (storage.Publisher, *DefaultRouter, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil, nil
	case "file":
		p, err := NewFilePublisher(FileConfig{BasePath: cfg.File.BasePath}, logger, metrics)
		if err != nil {
			return nil, nil, err
		}
		return p, NewRouter("file", "", cfg.BasePath, DefaultVersion), nil
	case "s3":
		p, err := NewS3Publisher(ctx, S3Config{
			Bucket:       cfg.S3.Bucket,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
			SSEEnabled:   cfg.S3.SSEEnabled,
			SSEKMSKeyID:  cfg.S3.SSEKMSKeyID,
		}, logger, metrics)
		if err != nil {
			return nil, nil, err
		}
		return p, NewRouter("s3", cfg.S3.Bucket, cfg.BasePath, DefaultVersion), nil
	case "gcs":
		p, err := NewGCSPublisher(ctx, GCSConfig{
			Bucket:               cfg.GCS.Bucket,
			ProjectID:            cfg.GCS.ProjectID,
			CredentialsFile:      cfg.GCS.CredentialsFile,
			CredentialsJSON:      cfg.GCS.CredentialsJSON,
			Endpoint:             cfg.GCS.Endpoint,
			UseDefaultCredential: cfg.GCS.UseDefaultCredential,
		}, logger, metrics)
		if err != nil {
			return nil, nil, err
		}
		return p, NewRouter("gs", cfg.GCS.Bucket, cfg.BasePath, DefaultVersion), nil
	case "azure":
		p, err := NewAzurePublisher(AzureConfig{
			AccountName:   cfg.Azure.AccountName,
			AccountKey:    cfg.Azure.AccountKey,
			ContainerName: cfg.Azure.Container,
			Endpoint:      cfg.Azure.Endpoint,
		}, logger, metrics)
		if err != nil {
			return nil, nil, err
		}
		return p, NewRouter("wasbs", cfg.Azure.Container, cfg.BasePath, DefaultVersion), nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// NewUploaderFromConfig wires the configured backend into an Uploader.
// It returns nil when publishing is disabled.
func NewUploaderFromConfig(ctx context.Context, cfg dto.StorageConfig, proc dto.ProcessingConfig, logger *slog.Logger, metrics MetricsCollector) (*Uploader, error) {
	publisher, router, err := NewPublisher(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		return nil, nil
	}
	return NewUploader(cfg.Backend, publisher, router,
		WithUploadLogger(logger),
		WithUploadMetrics(metrics),
		WithMaxConcurrent(proc.MaxConcurrentUploads),
		WithMaxAttempts(proc.UploadMaxAttempts),
	), nil
}
