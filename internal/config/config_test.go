package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join("./data/gulp", "gulp.db"), cfg.Database.DSN)
	assert.Equal(t, 1000, cfg.Ingest.BatchSize)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Database.Driver = "postgres" }},
		{"dsn", func(c *Config) { c.Database.Driver = "mysql"; c.Database.DSN = "" }},
		{"storage", func(c *Config) { c.Storage.Type = "gcs" }},
		{"bucket", func(c *Config) { c.Storage.Type = "s3" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"concurrency", func(c *Config) { c.Wiki.Concurrency = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Resolve()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gulp.yaml")
	content := `
data_dir: /tmp/gulp-test
database:
  driver: mysql
  dsn: "user:pw@tcp(localhost:3306)/gulp"
  idle_ttl: 30s
ingest:
  batch_size: 250
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/gulp-test", cfg.DataDir)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 30*time.Second, cfg.Database.IdleTTL)
	assert.Equal(t, 250, cfg.Ingest.BatchSize)
	// untouched sections keep their defaults
	assert.Equal(t, ":8000", cfg.HTTP.Addr)
}

func TestLoadFromFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gulp.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0644))
	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GULP_DB_DRIVER", "mysql")
	t.Setenv("GULP_DB_DSN", "dsn")
	t.Setenv("GULP_DB_MAX_OPEN_CONNS", "17")
	t.Setenv("GULP_DB_IDLE_TTL", "2m")
	t.Setenv("GULP_INGEST_BATCH_SIZE", "10")
	t.Setenv("GULP_WIKI_RPS", "2.5")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "dsn", cfg.Database.DSN)
	assert.Equal(t, 17, cfg.Database.MaxOpenConns)
	assert.Equal(t, 2*time.Minute, cfg.Database.IdleTTL)
	assert.Equal(t, 10, cfg.Ingest.BatchSize)
	assert.Equal(t, 2.5, cfg.Wiki.RequestsPerSecond)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GULP_DOTENV_CHECK=from-file\n"), 0644))
	t.Setenv("GULP_DOTENV_CHECK", "")
	os.Unsetenv("GULP_DOTENV_CHECK")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("GULP_DOTENV_CHECK"))
}
