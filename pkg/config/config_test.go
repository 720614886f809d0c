package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "https://data.texas.gov/resource", cfg.Ingest.BaseURL)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 500, cfg.Pipeline.ChunkSize)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
database:
  driver: postgres
  host: db.internal
pipeline:
  workers: 8
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	// untouched sections keep defaults
	assert.Equal(t, 500, cfg.Pipeline.ChunkSize)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("SOCRATA_APP_TOKEN", "token-123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "token-123", cfg.Ingest.AppToken)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.Port = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Pipeline.Workers = 0
	assert.Error(t, cfg.Validate())
}
