// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultAutoBackupFilename is the fixed name of the auto-backup snapshot.
// The scheduler always overwrites this one file; backups are never rotated.
const DefaultAutoBackupFilename = "rentbook_auto_backup.json"

// Config holds all configuration for the application.
type Config struct {
	DatabaseURL    string
	ListenAddr     string
	LogLevel       string
	LogJSON        bool
	AppVersion     string
	AutoBackupPath string
	OtelEnabled    bool
	OtlpEndpoint   string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ListenAddr:     os.Getenv("LISTEN_ADDR"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		AppVersion:     os.Getenv("APP_VERSION"),
		AutoBackupPath: os.Getenv("AUTO_BACKUP_PATH"),
		OtlpEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	cfg.LogJSON = os.Getenv("LOG_JSON") == "true"
	cfg.OtelEnabled = os.Getenv("OTEL_ENABLED") == "true"

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.AppVersion == "" {
		cfg.AppVersion = "dev"
	}
	if cfg.AutoBackupPath == "" {
		cfg.AutoBackupPath = filepath.Join(os.TempDir(), DefaultAutoBackupFilename)
	}

	// Validate required configuration.
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
