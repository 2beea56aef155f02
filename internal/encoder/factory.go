package encoder

import (
	"fmt"
	"strings"

	"github.com/jittakal/sentimentetl/internal/errors"
	"github.com/jittakal/sentimentetl/internal/sqlstore"
	"github.com/jittakal/sentimentetl/pkg/encoder"
)

// FactoryConfig holds per-format encoder settings.
type FactoryConfig struct {
	ParquetCompression string
	RowGroupRows       int
	AvroCodec          string
	TableName          string
	SQLiteBatchRows    int
}

// Factory creates encoders based on format and configuration.
type Factory struct {
	cfg FactoryConfig
}

// NewFactory creates a new encoder factory.
func NewFactory(cfg FactoryConfig) *Factory {
	return &Factory{cfg: cfg}
}

// CreateEncoder creates an encoder for the given format.
func (f *Factory) CreateEncoder(format encoder.Format) (encoder.Encoder, error) {
	switch format {
	case encoder.FormatCSV:
		return NewCSVEncoder(), nil
	case encoder.FormatParquet:
		return NewParquetEncoder(f.cfg.ParquetCompression, f.cfg.RowGroupRows), nil
	case encoder.FormatAvro:
		return NewAvroEncoder(f.cfg.AvroCodec)
	case encoder.FormatSQLite:
		return sqlstore.NewWriter(f.cfg.TableName, f.cfg.SQLiteBatchRows), nil
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedFormat, format)
	}
}

// SupportedFormats returns a list of supported file formats.
func SupportedFormats() []encoder.Format {
	return []encoder.Format{
		encoder.FormatCSV,
		encoder.FormatParquet,
		encoder.FormatSQLite,
		encoder.FormatAvro,
	}
}

// ParseFormat converts a configured format name.
func ParseFormat(name string) (encoder.Format, error) {
	for _, f := range SupportedFormats() {
		if strings.EqualFold(string(f), name) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errors.ErrUnsupportedFormat, name)
}

// SupportedCompressions returns supported compression codecs for a given format.
func SupportedCompressions(format encoder.Format) []string {
	switch format {
	case encoder.FormatParquet:
		return []string{"uncompressed", "snappy", "gzip", "lz4", "zstd"}
	case encoder.FormatAvro:
		return []string{"null", "deflate", "snappy", "gzip"}
	default:
		return []string{}
	}
}

// DefaultCompression returns the default compression for a format.
func DefaultCompression(format encoder.Format) string {
	switch format {
	case encoder.FormatParquet, encoder.FormatAvro:
		return "snappy"
	default:
		return "uncompressed"
	}
}
