// Package storage implements artifact publishers for the local filesystem,
// AWS S3, Google Cloud Storage and Azure Blob Storage.
package storage

import (
	"path/filepath"
	"strings"
)

// MetricsCollector defines metrics operations for storage.
type MetricsCollector interface {
	IncUploads(backend string, status string)
	ObserveUploadDuration(backend string, seconds float64)
	IncStorageErrors(backend string, operation string)
}

// splitObjectPath strips "<protocol>://" and the bucket segment from a routed
// object path and returns the bucket and the key inside it.
func splitObjectPath(objectPath, protocol string) (bucket, key string) {
	prefix := protocol + "://"
	if !strings.HasPrefix(objectPath, prefix) {
		return "", strings.TrimPrefix(objectPath, "/")
	}
	rest := strings.TrimPrefix(objectPath, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 2 {
		return parts[0], strings.TrimPrefix(parts[1], "/")
	}
	return parts[0], ""
}

// contentType maps an artifact extension to the MIME type set on upload.
func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "text/csv"
	case ".avro":
		return "application/avro"
	case ".gz":
		return "application/gzip"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".db":
		return "application/vnd.sqlite3"
	case ".prom", ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
