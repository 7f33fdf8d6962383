package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/dmorgan81/qrgen/internal/qr"
	"github.com/joho/godotenv"
)

const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// Config holds the environment driven configuration for the client.
type Config struct {
	// Remote service
	BaseAddress      string        `env:"QRGEN_BASE_ADDRESS" envDefault:"http://localhost:8000"`
	BaseAddressParam string        `env:"QRGEN_BASE_ADDRESS_PARAM"` // SSM parameter overriding BaseAddress
	Size             int           `env:"QRGEN_SIZE" envDefault:"10"`
	RequestTimeout   time.Duration `env:"QRGEN_REQUEST_TIMEOUT" envDefault:"30s"`

	// Downloads
	StorageBackend         string `env:"QRGEN_STORAGE_BACKEND" envDefault:"file"`
	DownloadDir            string `env:"QRGEN_DOWNLOAD_DIR"`
	S3Bucket               string `env:"QRGEN_S3_BUCKET"`
	CloudFrontDistribution string `env:"QRGEN_CLOUDFRONT_DISTRIBUTION"`

	// Observability
	LogLevel    string `env:"QRGEN_LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"QRGEN_LOG_FILE"`
	MetricsAddr string `env:"QRGEN_METRICS_ADDR"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.BaseAddress = strings.TrimSpace(cfg.BaseAddress)
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.CloudFrontDistribution = strings.TrimSpace(cfg.CloudFrontDistribution)
	if strings.TrimSpace(cfg.DownloadDir) == "" {
		cfg.DownloadDir = defaultDownloadDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := qr.ParseBaseAddress(c.BaseAddress); err != nil {
		return fmt.Errorf("QRGEN_BASE_ADDRESS: %w", err)
	}
	if c.Size < qr.MinSize || c.Size > qr.MaxSize {
		return fmt.Errorf("QRGEN_SIZE must be between %d and %d, got %d", qr.MinSize, qr.MaxSize, c.Size)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("QRGEN_REQUEST_TIMEOUT must not be negative")
	}
	switch c.StorageBackend {
	case BackendFile:
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("QRGEN_S3_BUCKET is required when QRGEN_STORAGE_BACKEND is s3")
		}
	default:
		return fmt.Errorf("QRGEN_STORAGE_BACKEND %q: want %q or %q", c.StorageBackend, BackendFile, BackendS3)
	}
	return nil
}

func (c *Config) IsS3Storage() bool {
	return c.StorageBackend == BackendS3
}

// defaultDownloadDir mirrors a browser's download location: ~/Downloads when
// it exists, otherwise the working directory. Under the Lambda runtime only
// the temp dir is writable.
func defaultDownloadDir() string {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		return os.TempDir()
	}
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, "Downloads")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return "."
}
