package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the datahub API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Queue     QueueConfig     `yaml:"queue"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Enrich    EnrichConfig    `yaml:"enrich"`
	Labels    LabelsConfig    `yaml:"labels"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds storage connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// QueueConfig holds task delivery settings shared by both queues.
type QueueConfig struct {
	BatchSize            int `yaml:"batch_size"`
	PollIntervalMs       int `yaml:"poll_interval_ms"`
	MaxAttempts          int `yaml:"max_attempts"`
	BackoffBaseMs        int `yaml:"backoff_base_ms"`
	BackoffCapSec        int `yaml:"backoff_cap_sec"`
	VisibilityTimeoutSec int `yaml:"visibility_timeout_sec"`
}

// DedupConfig holds counter dedup windows.
type DedupConfig struct {
	DownloadWindowSec int `yaml:"download_window_sec"`
	ViewWindowSec     int `yaml:"view_window_sec"`
}

// EnrichConfig holds metadata pipeline settings.
type EnrichConfig struct {
	PreviewRows        int `yaml:"preview_rows"`
	PreviewMaxBytes    int `yaml:"preview_max_bytes"`
	MaxFileBytes       int `yaml:"max_file_bytes"`
	DownloadTimeoutSec int `yaml:"download_timeout_sec"`
}

// LabelsConfig holds the label resolution service settings.
type LabelsConfig struct {
	BaseURL    string `yaml:"base_url"` // empty disables remote resolution
	TimeoutSec int    `yaml:"timeout_sec"`
}

// EmbeddingConfig holds the optional description embedding settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"` // empty disables embeddings
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// StorageConfig holds key namespace settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Queue.BatchSize <= 0 {
		c.Queue.BatchSize = 10
	}
	if c.Queue.PollIntervalMs <= 0 {
		c.Queue.PollIntervalMs = 250
	}
	if c.Queue.MaxAttempts <= 0 {
		c.Queue.MaxAttempts = 8
	}
	if c.Queue.BackoffBaseMs <= 0 {
		c.Queue.BackoffBaseMs = 500
	}
	if c.Queue.BackoffCapSec <= 0 {
		c.Queue.BackoffCapSec = 30
	}
	if c.Queue.VisibilityTimeoutSec <= 0 {
		c.Queue.VisibilityTimeoutSec = 120
	}
	if c.Dedup.DownloadWindowSec <= 0 {
		c.Dedup.DownloadWindowSec = 86400
	}
	if c.Dedup.ViewWindowSec <= 0 {
		c.Dedup.ViewWindowSec = 3600
	}
	if c.Enrich.PreviewRows <= 0 {
		c.Enrich.PreviewRows = 10
	}
	if c.Enrich.PreviewMaxBytes <= 0 {
		c.Enrich.PreviewMaxBytes = 16 * 1024
	}
	if c.Enrich.MaxFileBytes <= 0 {
		c.Enrich.MaxFileBytes = 256 * 1024 * 1024
	}
	if c.Enrich.DownloadTimeoutSec <= 0 {
		c.Enrich.DownloadTimeoutSec = 60
	}
	if c.Labels.TimeoutSec <= 0 {
		c.Labels.TimeoutSec = 5
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "datahub:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	if c.Database.Driver == "redis" && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required for the redis driver")
	}
	if c.Embedding.APIKey != "" && c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions is required when embeddings are enabled")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
