package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Publisher = (*FilePublisher)(nil)

// FileConfig contains local filesystem configuration.
type FileConfig struct {
	BasePath string
}

// FilePublisher implements storage.Publisher by copying artifacts into a
// directory tree rooted at BasePath.
type FilePublisher struct {
	basePath string
	logger   *slog.Logger
	metrics  MetricsCollector
	closed   atomic.Bool
}

// NewFilePublisher creates a new filesystem publisher.
func NewFilePublisher(config FileConfig, logger *slog.Logger, metrics MetricsCollector) (*FilePublisher, error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("file base path is required")
	}
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	logger.Info("filesystem publisher created", "base_path", config.BasePath)

	return &FilePublisher{
		basePath: config.BasePath,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Publish copies localPath to objectPath beneath the base path.
// A file:// protocol prefix is stripped before joining.
func (p *FilePublisher) Publish(ctx context.Context, localPath, objectPath string) (int64, error) {
	if p.closed.Load() {
		return 0, errors.ErrPublisherClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	startTime := time.Now()

	cleanPath := strings.TrimPrefix(objectPath, "file://")
	fullPath := filepath.Join(p.basePath, cleanPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		p.fail("mkdir")
		return 0, &errors.StorageError{Operation: "create", Path: fullPath, Err: err}
	}

	src, err := os.Open(localPath)
	if err != nil {
		p.fail("file_open")
		if os.IsNotExist(err) {
			return 0, &errors.FileNotFoundError{Path: localPath, Err: err}
		}
		return 0, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(fullPath)
	if err != nil {
		p.fail("create")
		return 0, &errors.StorageError{Operation: "create", Path: fullPath, Err: err}
	}

	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		p.fail("upload")
		return 0, &errors.StorageError{Operation: "upload", Path: fullPath, Err: err}
	}

	duration := time.Since(startTime)

	p.logger.Info("published artifact to filesystem",
		"source", localPath,
		"path", fullPath,
		"bytes", n,
		"duration_ms", duration.Milliseconds(),
	)

	if p.metrics != nil {
		p.metrics.IncUploads("file", "success")
		p.metrics.ObserveUploadDuration("file", duration.Seconds())
	}

	return n, nil
}

func (p *FilePublisher) fail(op string) {
	if p.metrics != nil {
		p.metrics.IncStorageErrors("file", op)
	}
}

// Close closes the publisher.
func (p *FilePublisher) Close() error {
	p.closed.Store(true)
	p.logger.Info("closing filesystem publisher")
	return nil
}
