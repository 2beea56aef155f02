package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Publisher = (*AzurePublisher)(nil)

// AzureConfig contains Azure Blob Storage configuration.
type AzureConfig struct {
	AccountName   string
	AccountKey    string
	ContainerName string
	Endpoint      string
}

// AzurePublisher implements storage.Publisher for Azure Blob Storage using
// shared key authentication.
type AzurePublisher struct {
	client        *azblob.Client
	containerName string
	logger        *slog.Logger
	metrics       MetricsCollector
	closed        atomic.Bool
}

// connectionString builds the azblob connection string for cfg. A custom
// endpoint (e.g. Azurite) replaces the public endpoint suffix.
func connectionString(cfg AzureConfig) string {
	if cfg.Endpoint != "" {
		return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;BlobEndpoint=%s",
			cfg.AccountName, cfg.AccountKey, cfg.Endpoint)
	}
	return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net",
		cfg.AccountName, cfg.AccountKey)
}

// NewAzurePublisher creates a new Azure Blob publisher.
func NewAzurePublisher(cfg AzureConfig, logger *slog.Logger, metrics MetricsCollector) (*AzurePublisher, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString(cfg), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	logger.Info("Azure publisher created",
		"container", cfg.ContainerName,
		"account", cfg.AccountName,
	)

	return &AzurePublisher{
		client:        client,
		containerName: cfg.ContainerName,
		logger:        logger,
		metrics:       metrics,
	}, nil
}

// Publish uploads localPath as a block blob. objectPath is
// wasbs://container/blob or a bare blob path.
func (p *AzurePublisher) Publish(ctx context.Context, localPath, objectPath string) (int64, error) {
	if p.closed.Load() {
		return 0, errors.ErrPublisherClosed
	}

	startTime := time.Now()

	_, blobPath := splitObjectPath(objectPath, "wasbs")

	file, err := os.Open(localPath)
	if err != nil {
		p.fail("file_open")
		if os.IsNotExist(err) {
			return 0, &errors.FileNotFoundError{Path: localPath, Err: err}
		}
		return 0, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		p.fail("file_stat")
		return 0, fmt.Errorf("failed to stat artifact: %w", err)
	}

	if _, err := p.client.UploadFile(ctx, p.containerName, blobPath, file, nil); err != nil {
		p.fail("upload")
		return 0, &errors.StorageError{Operation: "upload", Path: objectPath, Err: err}
	}

	duration := time.Since(startTime)

	p.logger.Info("published artifact to Azure Blob",
		"container", p.containerName,
		"blob", blobPath,
		"bytes", info.Size(),
		"duration_ms", duration.Milliseconds(),
	)

	if p.metrics != nil {
		p.metrics.IncUploads("azure", "success")
		p.metrics.ObserveUploadDuration("azure", duration.Seconds())
	}

	return info.Size(), nil
}

func (p *AzurePublisher) fail(op string) {
	if p.metrics != nil {
		p.metrics.IncStorageErrors("azure", op)
	}
}

// Close closes the Azure publisher.
func (p *AzurePublisher) Close() error {
	p.closed.Store(true)
	p.logger.Info("Azure publisher closed")
	return nil
}
