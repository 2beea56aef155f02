package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Publisher = (*S3Publisher)(nil)

// S3Config contains AWS S3 configuration.
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	SSEEnabled   bool
	SSEKMSKeyID  string
}

// S3Publisher implements storage.Publisher for AWS S3 and S3-compatible
// endpoints. Large artifacts go through the multipart upload manager.
type S3Publisher struct {
	client      *s3.Client
	uploader    *manager.Uploader
	bucket      string
	region      string
	sseEnabled  bool
	sseKMSKeyID string
	logger      *slog.Logger
	metrics     MetricsCollector
	closed      atomic.Bool
}

// NewS3Publisher creates a new S3 publisher.
func NewS3Publisher(ctx context.Context, cfg S3Config, logger *slog.Logger, metrics MetricsCollector) (*S3Publisher, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	uploader := manager.NewUploader(s3Client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024 // 10MB parts
		u.Concurrency = 5
	})

	logger.Info("S3 publisher created",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
		"endpoint", cfg.Endpoint,
		"sse_enabled", cfg.SSEEnabled,
	)

	return &S3Publisher{
		client:      s3Client,
		uploader:    uploader,
		bucket:      cfg.Bucket,
		region:      cfg.Region,
		sseEnabled:  cfg.SSEEnabled,
		sseKMSKeyID: cfg.SSEKMSKeyID,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// Publish uploads localPath to objectPath. objectPath is either
// s3://bucket/key or a bare key in the configured bucket.
func (p *S3Publisher) Publish(ctx context.Context, localPath, objectPath string) (int64, error) {
	if p.closed.Load() {
		return 0, errors.ErrPublisherClosed
	}

	startTime := time.Now()

	_, key := splitObjectPath(objectPath, "s3")

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

	uploadInput := p.putObjectInput(key, localPath)
	uploadInput.Body = file

	result, err := p.uploader.Upload(ctx, uploadInput)
	if err != nil {
		p.fail("upload")
		return 0, &errors.StorageError{Operation: "upload", Path: objectPath, Err: err}
	}

	duration := time.Since(startTime)

	p.logger.Info("published artifact to S3",
		"bucket", p.bucket,
		"key", key,
		"bytes", info.Size(),
		"location", result.Location,
		"duration_ms", duration.Milliseconds(),
	)

	if p.metrics != nil {
		p.metrics.IncUploads("s3", "success")
		p.metrics.ObserveUploadDuration("s3", duration.Seconds())
	}

	return info.Size(), nil
}

// putObjectInput builds the upload request without a body.
func (p *S3Publisher) putObjectInput(key, localPath string) *s3.PutObjectInput {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType(localPath)),
	}

	if p.sseEnabled {
		if p.sseKMSKeyID != "" {
			input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
			input.SSEKMSKeyId = aws.String(p.sseKMSKeyID)
		} else {
			input.ServerSideEncryption = types.ServerSideEncryptionAes256
		}
	}
	return input
}

func (p *S3Publisher) fail(op string) {
	if p.metrics != nil {
		p.metrics.IncStorageErrors("s3", op)
	}
}

// Close closes the S3 publisher.
func (p *S3Publisher) Close() error {
	p.closed.Store(true)
	p.logger.Info("closing S3 publisher")
	return nil
}
