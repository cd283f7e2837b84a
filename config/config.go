// Package config loads the precis runtime configuration from an optional
// YAML file plus environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scrivano/precis/safeid"
)

// Config is the top-level precis configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Artifact ArtifactConfig `yaml:"artifact"`
	History  HistoryConfig  `yaml:"history"`
	Poll     PollConfig     `yaml:"poll"`
	Dedup    DedupConfig    `yaml:"dedup"`
	LogLevel string         `yaml:"log_level"` // debug | info | warn | error
	LogFile  string         `yaml:"log_file"`  // empty: stderr (mcp) or discard (tui)
}

// APIConfig points at the summarization backend.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ArtifactConfig controls where produced PDF artifacts are stored.
type ArtifactConfig struct {
	Backend   string        `yaml:"backend"` // http | s3
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxFileMB int           `yaml:"max_file_mb"`
	S3        S3Config      `yaml:"s3"`
}

// S3Config configures the S3 artifact backend.
type S3Config struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"` // for S3-compatible stores
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	PublicBaseURL  string `yaml:"public_base_url"`
}

// HistoryConfig locates the local upload ledger.
type HistoryConfig struct {
	Path       string `yaml:"path"`
	MaxRecords int    `yaml:"max_records"`
}

// PollConfig bounds the summary poll loop.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

// DedupConfig controls the duplicate-upload probe.
type DedupConfig struct {
	// FailOpen treats a failed fingerprint probe as a miss and lets the
	// upload proceed. Disable to abort instead.
	FailOpen bool `yaml:"fail_open"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8082",
			Timeout: 30 * time.Second,
		},
		Artifact: ArtifactConfig{
			Backend:   "http",
			BaseURL:   "http://localhost:8082/artifacts",
			Timeout:   2 * time.Minute,
			MaxFileMB: 100,
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		History: HistoryConfig{
			Path:       "precis.db",
			MaxRecords: 200,
		},
		Poll: PollConfig{
			Interval:    5 * time.Second,
			MaxAttempts: 60,
			MaxBackoff:  time.Minute,
		},
		Dedup:    DedupConfig{FailOpen: true},
		LogLevel: "info",
	}
}

// Load builds the runtime configuration: defaults, then the YAML file when
// path names one, then environment overrides. The file is optional; an
// empty path skips it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// applyEnv overlays environment variables on top of file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("PRECIS_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("PRECIS_ARTIFACT_URL"); v != "" {
		c.Artifact.BaseURL = v
	}
	if v := os.Getenv("PRECIS_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if err := safeid.ValidateURL(c.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0")
	}
	switch c.Artifact.Backend {
	case "http", "":
		if c.Artifact.BaseURL == "" {
			return fmt.Errorf("artifact.base_url is required")
		}
		if err := safeid.ValidateURL(c.Artifact.BaseURL); err != nil {
			return fmt.Errorf("artifact.base_url: %w", err)
		}
	case "s3":
		if c.Artifact.S3.Bucket == "" {
			return fmt.Errorf("artifact.s3.bucket is required")
		}
		if c.Artifact.S3.Region == "" {
			return fmt.Errorf("artifact.s3.region is required")
		}
		if u := c.Artifact.S3.PublicBaseURL; u != "" {
			if err := safeid.ValidateURL(u); err != nil {
				return fmt.Errorf("artifact.s3.public_base_url: %w", err)
			}
		}
	default:
		return fmt.Errorf("artifact: unsupported backend %q (use http or s3)", c.Artifact.Backend)
	}
	if c.Artifact.Timeout <= 0 {
		return fmt.Errorf("artifact.timeout must be > 0")
	}
	if c.Artifact.MaxFileMB <= 0 {
		return fmt.Errorf("artifact.max_file_mb must be > 0")
	}
	if c.History.Path == "" {
		return fmt.Errorf("history.path is required")
	}
	if c.History.MaxRecords < 0 {
		return fmt.Errorf("history.max_records must be >= 0")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be > 0")
	}
	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("poll.max_attempts must be > 0")
	}
	if c.Poll.MaxBackoff < c.Poll.Interval {
		return fmt.Errorf("poll.max_backoff must be >= poll.interval")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("unsupported log_level %q (use debug, info, warn, or error)", c.LogLevel)
	}
	return nil
}

// MaxFileBytes returns the artifact size cap in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.Artifact.MaxFileMB) * 1024 * 1024 }

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
