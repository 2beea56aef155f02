// Package storage defines interfaces for publishing pipeline artifacts.
//
// This package provides abstractions for copying written output files to
// various storage backends (S3, GCS, Azure Blob, local filesystem).
package storage

import (
	"context"
	"time"
)

// Publisher copies a local file to a storage backend.
type Publisher interface {
	// Publish uploads the file at localPath to objectPath, a full
	// protocol-qualified location as produced by a Router.
	// Returns the number of bytes written.
	Publish(ctx context.Context, localPath, objectPath string) (int64, error)

	// Close closes the publisher and releases resources.
	Close() error
}

// Router determines storage locations for run artifacts.
type Router interface {
	// Route returns the prefix under which a run's artifacts are stored.
	// dataset: logical dataset name (the output base name)
	// runTime: run start time, used for the date partition
	// runID: unique run identifier
	Route(dataset string, runTime time.Time, runID string) string
}
