package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_TypesenseConfig(t *testing.T) {
	t.Setenv("TYPESENSE_URL", "http://test-typesense:8108")
	t.Setenv("TYPESENSE_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://test-typesense:8108", cfg.Typesense.URL)
	assert.Equal(t, "test-key", cfg.Typesense.APIKey)
	assert.Equal(t, "keywords", cfg.Typesense.Collection)
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("TYPESENSE_URL")
	os.Unsetenv("TYPESENSE_API_KEY")
	os.Unsetenv("CONFIG_FILE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8108", cfg.Typesense.URL)
	assert.Equal(t, "xyz", cfg.Typesense.APIKey)
	assert.Equal(t, 384, cfg.Ollama.Dimensions)
	assert.Equal(t, 12, cfg.Pipeline.SeedCount)
	assert.Equal(t, 50, cfg.Pipeline.MetricsBatchSize)
	assert.Equal(t, 4, cfg.Pipeline.MetricsConcurrency)
	assert.Equal(t, 100, cfg.Pipeline.WriteBatchSize)
	assert.Equal(t, 2, cfg.Pipeline.WriteConcurrency)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.HeartbeatInterval)
}

func TestLoad_PipelineFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := "pipeline:\n  seed_count: 6\n  seed_timeout: 5s\n  write_concurrency: 1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Pipeline.SeedCount)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.SeedTimeout)
	assert.Equal(t, 1, cfg.Pipeline.WriteConcurrency)
	// untouched keys keep their defaults
	assert.Equal(t, 50, cfg.Pipeline.MetricsBatchSize)
}

func TestLoad_EnvBeatsPipelineFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  seed_count: 6\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PIPELINE_SEED_COUNT", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Pipeline.SeedCount)
}

func TestLoad_InvalidPipelineFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestPipelineConfig_Validate(t *testing.T) {
	p := DefaultPipelineConfig()
	assert.NoError(t, p.Validate())

	p.SeedCount = 0
	assert.Error(t, p.Validate())

	p = DefaultPipelineConfig()
	p.MetricsConcurrency = 0
	assert.Error(t, p.Validate())
}

func TestDatabaseConfig_URLs(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "kw", Password: "p@ss", Database: "keywordscout", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=kw password=p@ss dbname=keywordscout sslmode=disable", db.DatabaseDSN())
	assert.Equal(t, "postgres://kw:p%40ss@db:5432/keywordscout?sslmode=disable", db.DatabaseURL())
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}
