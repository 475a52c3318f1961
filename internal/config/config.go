// Package config provides configuration for the gulp server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the configuration for all gulp commands.
type Config struct {
	// DataDir is the base directory for the SQLite database and local storage
	DataDir string `json:"data_dir" yaml:"data_dir"`

	HTTP     HTTPConfig     `json:"http" yaml:"http"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Wiki     WikiConfig     `json:"wiki" yaml:"wiki"`
	Ingest   IngestConfig   `json:"ingest" yaml:"ingest"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Addr         string        `json:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`

	// MaxUploadMB bounds multipart uploads
	MaxUploadMB int64 `json:"max_upload_mb" yaml:"max_upload_mb"`
}

// DatabaseConfig holds the relational store configuration.
type DatabaseConfig struct {
	// Driver is sqlite3 or mysql
	Driver string `json:"driver" yaml:"driver"`

	// DSN is the driver specific data source name. For sqlite3 an empty DSN
	// resolves to <data_dir>/gulp.db
	DSN string `json:"dsn" yaml:"dsn"`

	MaxOpenConns int `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int `json:"max_idle_conns" yaml:"max_idle_conns"`

	// IdleTTL closes connections that stayed idle this long
	IdleTTL time.Duration `json:"idle_ttl" yaml:"idle_ttl"`

	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// StorageConfig holds storage configuration for uploaded files.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	Bucket       string `json:"bucket" yaml:"bucket"`
	Region       string `json:"region" yaml:"region"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	UsePathStyle bool   `json:"use_path_style" yaml:"use_path_style"`
}

// WikiConfig controls calls to MediaWiki APIs and other remote sources.
type WikiConfig struct {
	UserAgent         string        `json:"user_agent" yaml:"user_agent"`
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `json:"burst" yaml:"burst"`
	Concurrency       int           `json:"concurrency" yaml:"concurrency"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`

	// APIURL overrides the per-wiki API endpoint; "{server}" is replaced by the wiki host
	APIURL string `json:"api_url" yaml:"api_url"`

	// PagePileURL overrides the PagePile API endpoint
	PagePileURL string `json:"pagepile_url" yaml:"pagepile_url"`
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	// BatchSize is the number of rows committed per transaction
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// GuessLimit is the number of rows sampled when guessing headers
	GuessLimit int `json:"guess_limit" yaml:"guess_limit"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `json:"level" yaml:"level"`

	// File enables an additional JSON log file with rotation
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/gulp",
		HTTP: HTTPConfig{
			Addr:         ":8000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  120 * time.Second,
			MaxUploadMB:  100,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite3",
			MaxOpenConns: 8,
			MaxIdleConns: 2,
			IdleTTL:      60 * time.Second,
		},
		Storage: StorageConfig{
			Type: "local",
		},
		Wiki: WikiConfig{
			UserAgent:         "gulp/0.1",
			RequestsPerSecond: 10,
			Burst:             5,
			Concurrency:       4,
			Timeout:           60 * time.Second,
		},
		Ingest: IngestConfig{
			BatchSize:  1000,
			GuessLimit: 1000,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/gulp"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
	if c.Database.Driver == "sqlite3" && c.Database.DSN == "" {
		c.Database.DSN = filepath.Join(c.DataDir, "gulp.db")
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 1000
	}
	if c.Ingest.GuessLimit <= 0 {
		c.Ingest.GuessLimit = 1000
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	switch c.Database.Driver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite3 or mysql)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1, got %d", c.Database.MaxOpenConns)
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	if c.Wiki.Concurrency < 1 {
		return fmt.Errorf("wiki.concurrency must be at least 1, got %d", c.Wiki.Concurrency)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the GULP_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GULP_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("GULP_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}

	// Database configuration
	if v := os.Getenv("GULP_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("GULP_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("GULP_DB_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.MaxOpenConns = n
		}
	}
	if v := os.Getenv("GULP_DB_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.MaxIdleConns = n
		}
	}
	if v := os.Getenv("GULP_DB_IDLE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Database.IdleTTL = d
		}
	}

	// Storage configuration
	if v := os.Getenv("GULP_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("GULP_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("GULP_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("GULP_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("GULP_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}

	// Wiki configuration
	if v := os.Getenv("GULP_WIKI_USER_AGENT"); v != "" {
		cfg.Wiki.UserAgent = v
	}
	if v := os.Getenv("GULP_WIKI_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Wiki.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("GULP_WIKI_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Wiki.Concurrency = n
		}
	}

	// Ingest configuration
	if v := os.Getenv("GULP_INGEST_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.BatchSize = n
		}
	}

	// Log configuration
	if v := os.Getenv("GULP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("GULP_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}
	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
