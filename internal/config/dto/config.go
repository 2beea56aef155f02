package dto

import (
	"fmt"
	"path/filepath"
)

// ApplicationConfig is the root configuration structure
type ApplicationConfig struct {
	Application   ApplicationInfo     `mapstructure:"application"`
	Extract       ExtractConfig       `mapstructure:"extract"`
	Transform     TransformConfig     `mapstructure:"transform"`
	Load          LoadConfig          `mapstructure:"load"`
	Parquet       ParquetConfig       `mapstructure:"parquet"`
	Avro          AvroConfig          `mapstructure:"avro"`
	Report        ReportConfig        `mapstructure:"report"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Processing    ProcessingConfig    `mapstructure:"processing"`
	Notify        NotifyConfig        `mapstructure:"notify"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ApplicationInfo contains application metadata
type ApplicationInfo struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ExtractConfig contains input settings
type ExtractConfig struct {
	InputPath   string   `mapstructure:"input_path"`
	Encodings   []string `mapstructure:"encodings"`
	PreviewRows int      `mapstructure:"preview_rows"`
}

// TransformConfig contains cleaning settings
type TransformConfig struct {
	TextSentinel string `mapstructure:"text_sentinel"`
}

// LoadConfig contains output settings
type LoadConfig struct {
	OutputDir       string   `mapstructure:"output_dir"`
	BaseName        string   `mapstructure:"base_name"`
	TableName       string   `mapstructure:"table_name"`
	Formats         []string `mapstructure:"formats"`
	SQLiteBatchRows int      `mapstructure:"sqlite_batch_rows"`
}

// Path returns the output path for a file extension such as ".csv".
func (c LoadConfig) Path(ext string) string {
	return filepath.Join(c.OutputDir, c.BaseName+ext)
}

// ParquetConfig contains Parquet format settings
type ParquetConfig struct {
	Compression  string `mapstructure:"compression"`
	RowGroupRows int    `mapstructure:"row_group_rows"`
}

// AvroConfig contains Avro format settings
type AvroConfig struct {
	Codec string `mapstructure:"codec"`
}

// ReportConfig contains analysis summary settings
type ReportConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StorageConfig contains artifact publishing configuration
type StorageConfig struct {
	Backend  string      `mapstructure:"backend"`
	BasePath string      `mapstructure:"base_path"`
	S3       S3Config    `mapstructure:"s3"`
	Azure    AzureConfig `mapstructure:"azure"`
	GCS      GCSConfig   `mapstructure:"gcs"`
	File     FileConfig  `mapstructure:"file"`
}

// S3Config contains AWS S3 configuration
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	SSEEnabled   bool   `mapstructure:"sse_enabled"`
	SSEKMSKeyID  string `mapstructure:"sse_kms_key_id"`
}

// AzureConfig contains Azure Blob Storage configuration
type AzureConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	Container   string `mapstructure:"container"`
	Endpoint    string `mapstructure:"endpoint"`
}

// GCSConfig contains Google Cloud Storage configuration
type GCSConfig struct {
	Bucket               string `mapstructure:"bucket"`
	ProjectID            string `mapstructure:"project_id"`
	Endpoint             string `mapstructure:"endpoint"`
	CredentialsFile      string `mapstructure:"credentials_file"`
	CredentialsJSON      string `mapstructure:"credentials_json"`
	UseDefaultCredential bool   `mapstructure:"use_default_credential"`
}

// FileConfig contains local filesystem configuration
type FileConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// ProcessingConfig contains processing settings
type ProcessingConfig struct {
	MaxConcurrentUploads int `mapstructure:"max_concurrent_uploads"`
	UploadMaxAttempts    int `mapstructure:"upload_max_attempts"`
}

// NotifyConfig contains run notification settings
type NotifyConfig struct {
	Enabled          bool      `mapstructure:"enabled"`
	BootstrapServers []string  `mapstructure:"bootstrap_servers"`
	Topic            string    `mapstructure:"topic"`
	Source           string    `mapstructure:"source"`
	SecurityProtocol string    `mapstructure:"security_protocol"`
	SASLMechanism    string    `mapstructure:"sasl_mechanism"`
	SASLUsername     string    `mapstructure:"sasl_username"`
	SASLPassword     string    `mapstructure:"sasl_password"`
	AWSRegion        string    `mapstructure:"aws_region"`
	TimeoutSeconds   int       `mapstructure:"timeout_seconds"`
	TLS              TLSConfig `mapstructure:"tls"`
}

// TLSConfig contains broker TLS settings
type TLSConfig struct {
	CACertFile         string `mapstructure:"ca_cert_file"`
	ClientCertFile     string `mapstructure:"client_cert_file"`
	ClientKeyFile      string `mapstructure:"client_key_file"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// ObservabilityConfig contains observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	TextfilePath string `mapstructure:"textfile_path"`
	ListenAddr   string `mapstructure:"listen_addr"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.Application.Name == "" {
		return fmt.Errorf("application name is required")
	}
	if c.Extract.InputPath == "" {
		return fmt.Errorf("extract input path is required")
	}
	if c.Load.OutputDir == "" {
		return fmt.Errorf("load output dir is required")
	}
	if c.Load.BaseName == "" {
		return fmt.Errorf("load base name is required")
	}
	return nil
}

// Validate validates S3 configuration.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	if c.Region == "" {
		return fmt.Errorf("s3 region is required")
	}
	return nil
}

// Validate validates Azure configuration.
func (c *AzureConfig) Validate() error {
	if c.AccountName == "" {
		return fmt.Errorf("azure account name is required")
	}
	if c.Container == "" {
		return fmt.Errorf("azure container is required")
	}
	return nil
}

// Validate validates GCS configuration.
func (c *GCSConfig) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("gcs bucket is required")
	}
	return nil
}

// Validate validates file configuration.
func (c *FileConfig) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("file base path is required")
	}
	return nil
}

// Validate validates notify configuration. A disabled notifier is always valid.
func (c *NotifyConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.BootstrapServers) == 0 {
		return fmt.Errorf("notify bootstrap servers are required")
	}
	if c.Topic == "" {
		return fmt.Errorf("notify topic is required")
	}
	return nil
}
