package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jittakal/sentimentetl/internal/config/dto"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides,
// e.g. SENTIMENTETL_LOAD_OUTPUT_DIR.
const EnvPrefix = "SENTIMENTETL"

// DefaultPath is used when neither a flag nor CONFIG_PATH names a file.
const DefaultPath = "config/application.yaml"

var (
	supportedFormats          = []string{"csv", "parquet", "sqlite", "avro"}
	supportedEncodings        = []string{"utf-8", "latin-1", "iso-8859-1", "cp1252"}
	supportedBackends         = []string{"none", "file", "s3", "gcs", "azure"}
	supportedParquetCodecs    = []string{"uncompressed", "snappy", "gzip", "lz4", "zstd"}
	supportedAvroCodecs       = []string{"null", "deflate", "snappy", "gzip"}
	supportedSecurityProtocol = []string{"PLAINTEXT", "SSL", "SASL_PLAINTEXT", "SASL_SSL"}
)

// Loader handles configuration loading and validation
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// ResolvePath picks the config file: explicit flag value, then CONFIG_PATH,
// then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return DefaultPath
}

// Load loads configuration from file and environment variables.
// A missing file is not an error; defaults and environment apply.
func (l *Loader) Load(path string) (*dto.ApplicationConfig, error) {
	l.setDefaults()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Expand environment variables in config values
	// Only expand if the value contains ${...} pattern
	for _, key := range l.v.AllKeys() {
		value := l.v.GetString(key)
		if strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	var config dto.ApplicationConfig
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Observability.Metrics.TextfilePath == "" {
		config.Observability.Metrics.TextfilePath = filepath.Join(config.Load.OutputDir, "sentimentetl.prom")
	}

	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func (l *Loader) setDefaults() {
	// Application defaults
	l.v.SetDefault("application.name", "sentimentetl")
	l.v.SetDefault("application.version", "1.0.0")
	l.v.SetDefault("application.environment", "development")

	// Extract defaults
	l.v.SetDefault("extract.input_path", "stock_senti_analysis.csv")
	l.v.SetDefault("extract.encodings", supportedEncodings)
	l.v.SetDefault("extract.preview_rows", 5)

	// Transform defaults
	l.v.SetDefault("transform.text_sentinel", "Unknown")

	// Load defaults
	l.v.SetDefault("load.output_dir", "data")
	l.v.SetDefault("load.base_name", "stock_senti_clean")
	l.v.SetDefault("load.table_name", "stock_sentiment")
	l.v.SetDefault("load.formats", []string{"csv", "parquet", "sqlite"})
	l.v.SetDefault("load.sqlite_batch_rows", 500)

	// Parquet defaults
	l.v.SetDefault("parquet.compression", "snappy")
	l.v.SetDefault("parquet.row_group_rows", 10000)

	// Avro defaults
	l.v.SetDefault("avro.codec", "snappy")

	// Report defaults
	l.v.SetDefault("report.enabled", true)

	// Storage defaults
	l.v.SetDefault("storage.backend", "none")
	l.v.SetDefault("storage.base_path", "sentimentetl")
	l.v.SetDefault("storage.s3.bucket", "")
	l.v.SetDefault("storage.s3.region", "")
	l.v.SetDefault("storage.s3.endpoint", "")
	l.v.SetDefault("storage.s3.use_path_style", false)
	l.v.SetDefault("storage.s3.sse_enabled", true)
	l.v.SetDefault("storage.s3.sse_kms_key_id", "")
	l.v.SetDefault("storage.gcs.bucket", "")
	l.v.SetDefault("storage.gcs.project_id", "")
	l.v.SetDefault("storage.gcs.endpoint", "")
	l.v.SetDefault("storage.gcs.credentials_file", "")
	l.v.SetDefault("storage.gcs.credentials_json", "")
	l.v.SetDefault("storage.gcs.use_default_credential", true)
	l.v.SetDefault("storage.azure.account_name", "")
	l.v.SetDefault("storage.azure.account_key", "")
	l.v.SetDefault("storage.azure.container", "")
	l.v.SetDefault("storage.azure.endpoint", "")
	l.v.SetDefault("storage.file.base_path", "")

	// Processing defaults
	l.v.SetDefault("processing.max_concurrent_uploads", 4)
	l.v.SetDefault("processing.upload_max_attempts", 3)

	// Notify defaults
	l.v.SetDefault("notify.enabled", false)
	l.v.SetDefault("notify.bootstrap_servers", []string{"localhost:9092"})
	l.v.SetDefault("notify.topic", "sentimentetl-runs")
	l.v.SetDefault("notify.source", "sentimentetl")
	l.v.SetDefault("notify.security_protocol", "PLAINTEXT")
	l.v.SetDefault("notify.sasl_mechanism", "PLAIN")
	l.v.SetDefault("notify.sasl_username", "")
	l.v.SetDefault("notify.sasl_password", "")
	l.v.SetDefault("notify.aws_region", "us-east-1")
	l.v.SetDefault("notify.timeout_seconds", 10)
	l.v.SetDefault("notify.tls.ca_cert_file", "")
	l.v.SetDefault("notify.tls.client_cert_file", "")
	l.v.SetDefault("notify.tls.client_key_file", "")
	l.v.SetDefault("notify.tls.insecure_skip_verify", false)

	// Observability defaults
	l.v.SetDefault("observability.logging.level", "info")
	l.v.SetDefault("observability.logging.format", "text")
	l.v.SetDefault("observability.logging.output", "stderr")
	l.v.SetDefault("observability.metrics.enabled", true)
	l.v.SetDefault("observability.metrics.textfile_path", "")
	l.v.SetDefault("observability.metrics.listen_addr", "")
}

// Validate validates the configuration
func (l *Loader) Validate(config *dto.ApplicationConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	// Extract validation
	if len(config.Extract.Encodings) == 0 {
		return errors.New("extract.encodings must not be empty")
	}
	for _, enc := range config.Extract.Encodings {
		if !slices.Contains(supportedEncodings, strings.ToLower(enc)) {
			return fmt.Errorf("unsupported encoding: %s", enc)
		}
	}
	if config.Extract.PreviewRows < 0 {
		return fmt.Errorf("invalid extract.preview_rows: %d", config.Extract.PreviewRows)
	}

	// Load validation
	if len(config.Load.Formats) == 0 {
		return errors.New("load.formats must not be empty")
	}
	for _, format := range config.Load.Formats {
		if !slices.Contains(supportedFormats, format) {
			return fmt.Errorf("unsupported load format: %s", format)
		}
	}
	if config.Load.TableName == "" {
		return errors.New("load.table_name is required")
	}
	if config.Load.SQLiteBatchRows < 1 {
		return fmt.Errorf("invalid load.sqlite_batch_rows: %d", config.Load.SQLiteBatchRows)
	}

	// Format settings validation
	if !slices.Contains(supportedParquetCodecs, strings.ToLower(config.Parquet.Compression)) {
		return fmt.Errorf("unsupported parquet compression: %s", config.Parquet.Compression)
	}
	if config.Parquet.RowGroupRows < 1 {
		return fmt.Errorf("invalid parquet.row_group_rows: %d", config.Parquet.RowGroupRows)
	}
	if !slices.Contains(supportedAvroCodecs, strings.ToLower(config.Avro.Codec)) {
		return fmt.Errorf("unsupported avro codec: %s", config.Avro.Codec)
	}

	// Storage validation
	switch config.Storage.Backend {
	case "none":
	case "s3":
		if err := config.Storage.S3.Validate(); err != nil {
			return fmt.Errorf("storage.s3: %w", err)
		}
	case "azure":
		if err := config.Storage.Azure.Validate(); err != nil {
			return fmt.Errorf("storage.azure: %w", err)
		}
	case "gcs":
		if err := config.Storage.GCS.Validate(); err != nil {
			return fmt.Errorf("storage.gcs: %w", err)
		}
	case "file":
		if err := config.Storage.File.Validate(); err != nil {
			return fmt.Errorf("storage.file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", config.Storage.Backend)
	}

	// Processing validation
	if config.Processing.MaxConcurrentUploads < 1 {
		return fmt.Errorf("invalid processing.max_concurrent_uploads: %d", config.Processing.MaxConcurrentUploads)
	}
	if config.Processing.UploadMaxAttempts < 1 {
		return fmt.Errorf("invalid processing.upload_max_attempts: %d", config.Processing.UploadMaxAttempts)
	}

	// Notify validation
	if err := config.Notify.Validate(); err != nil {
		return err
	}
	if config.Notify.Enabled && !slices.Contains(supportedSecurityProtocol, config.Notify.SecurityProtocol) {
		return fmt.Errorf("unsupported notify.security_protocol: %s", config.Notify.SecurityProtocol)
	}

	return nil
}
