package dto

import (
	"path/filepath"
	"testing"
)

func TestApplicationConfig_Validate(t *testing.T) {
	valid := func() ApplicationConfig {
		return ApplicationConfig{
			Application: ApplicationInfo{Name: "sentimentetl"},
			Extract:     ExtractConfig{InputPath: "stock_senti_analysis.csv"},
			Load:        LoadConfig{OutputDir: "data", BaseName: "stock_senti_clean"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *ApplicationConfig)
		wantErr bool
	}{
		{"valid", func(c *ApplicationConfig) {}, false},
		{"missing name", func(c *ApplicationConfig) { c.Application.Name = "" }, true},
		{"missing input", func(c *ApplicationConfig) { c.Extract.InputPath = "" }, true},
		{"missing output dir", func(c *ApplicationConfig) { c.Load.OutputDir = "" }, true},
		{"missing base name", func(c *ApplicationConfig) { c.Load.BaseName = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_Path(t *testing.T) {
	cfg := LoadConfig{OutputDir: "data", BaseName: "stock_senti_clean"}

	tests := []struct {
		ext  string
		want string
	}{
		{".csv", filepath.Join("data", "stock_senti_clean.csv")},
		{".parquet", filepath.Join("data", "stock_senti_clean.parquet")},
		{".db", filepath.Join("data", "stock_senti_clean.db")},
		{"_summary.xlsx", filepath.Join("data", "stock_senti_clean_summary.xlsx")},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := cfg.Path(tt.ext); got != tt.want {
				t.Errorf("Path(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestS3Config_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  S3Config
		wantErr bool
	}{
		{"valid", S3Config{Bucket: "my-bucket", Region: "us-east-1"}, false},
		{"missing bucket", S3Config{Region: "us-east-1"}, true},
		{"missing region", S3Config{Bucket: "my-bucket"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAzureConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  AzureConfig
		wantErr bool
	}{
		{"valid", AzureConfig{AccountName: "acct", Container: "etl"}, false},
		{"missing account", AzureConfig{Container: "etl"}, true},
		{"missing container", AzureConfig{AccountName: "acct"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGCSAndFileConfig_Validate(t *testing.T) {
	if err := (&GCSConfig{}).Validate(); err == nil {
		t.Error("GCSConfig without bucket should fail validation")
	}
	if err := (&GCSConfig{Bucket: "b"}).Validate(); err != nil {
		t.Errorf("GCSConfig.Validate() error = %v", err)
	}
	if err := (&FileConfig{}).Validate(); err == nil {
		t.Error("FileConfig without base path should fail validation")
	}
	if err := (&FileConfig{BasePath: "/tmp/mirror"}).Validate(); err != nil {
		t.Errorf("FileConfig.Validate() error = %v", err)
	}
}

func TestNotifyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  NotifyConfig
		wantErr bool
	}{
		{"disabled needs nothing", NotifyConfig{}, false},
		{"enabled valid", NotifyConfig{Enabled: true, BootstrapServers: []string{"localhost:9092"}, Topic: "etl-runs"}, false},
		{"enabled without brokers", NotifyConfig{Enabled: true, Topic: "etl-runs"}, true},
		{"enabled without topic", NotifyConfig{Enabled: true, BootstrapServers: []string{"localhost:9092"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
