package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/jittakal/sentimentetl/pkg/storage"
)

// Ensure implementation satisfies interface.
var _ storage.Router = (*DefaultRouter)(nil)

// DefaultVersion is the layout version segment of routed prefixes.
const DefaultVersion = "v1"

// DefaultRouter implements Hive-style partitioning for storage paths.
type DefaultRouter struct {
	protocol string
	bucket   string
	basePath string
	version  string
}

// NewRouter creates a new storage router. An empty version means DefaultVersion.
func NewRouter(protocol, bucket, basePath, version string) *DefaultRouter {
	if version == "" {
		version = DefaultVersion
	}
	return &DefaultRouter{
		protocol: protocol,
		bucket:   bucket,
		basePath: strings.Trim(basePath, "/"),
		version:  version,
	}
}

// Route returns the storage prefix for one run's artifacts.
// Format: protocol://bucket/basePath/dataset/version/dt=YYYY-MM-DD/run=ID/
// The date partition uses the run start time in UTC.
func (r *DefaultRouter) Route(dataset string, runTime time.Time, runID string) string {
	date := runTime.UTC().Format("2006-01-02")

	segments := make([]string, 0, 5)
	if r.basePath != "" {
		segments = append(segments, r.basePath)
	}
	segments = append(segments, dataset, r.version, "dt="+date, "run="+runID)

	return fmt.Sprintf("%s://%s/%s/", r.protocol, r.bucket, strings.Join(segments, "/"))
}
