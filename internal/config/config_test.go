package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/locality/internal/cache"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, cache.BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 10_000, cfg.Cache.MaxEntries)
	assert.Empty(t, cfg.Google.Key)
	assert.InDelta(t, 10, cfg.Google.RatePerSecond, 0.001)
	assert.Equal(t, "https://servicodados.ibge.gov.br", cfg.IBGE.BaseURL)
	assert.Equal(t, "google", cfg.Places.Provider)
	assert.Equal(t, "google", cfg.Geocode.Provider)
	assert.Equal(t, "ibge", cfg.Stats.Provider)
	assert.InDelta(t, 1000, cfg.Score.RadiusMeters, 0.001)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "geoftp.ibge.gov.br:21", cfg.Seed.FTPHost)
	assert.Equal(t, 5, cfg.Batch.Concurrency)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chdirTemp(t)

	yaml := `
cache:
  backend: sqlite
  path: /var/tmp/locality.db
  ttl_overrides:
    search-results: 1h
log:
  level: debug
  format: console
server:
  port: 9090
places:
  provider: static
  dataset_path: testdata/places.json
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, cache.BackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, "/var/tmp/locality.db", cfg.Cache.Path)
	assert.Equal(t, time.Hour, cfg.Cache.TTLOverrides[cache.NamespaceSearchResults])
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "static", cfg.Places.Provider)
	assert.Equal(t, "testdata/places.json", cfg.Places.DatasetPath)
	// Defaults still apply for unset values
	assert.Equal(t, "ibge", cfg.Stats.Provider)
	assert.Equal(t, 5, cfg.Batch.Concurrency)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chdirTemp(t)

	yaml := `
cache:
  backend: sqlite
log:
  level: debug
server:
  port: 7070
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LOCALITY_CACHE_BACKEND", "postgres")
	t.Setenv("LOCALITY_LOG_LEVEL", "warn")
	t.Setenv("LOCALITY_GOOGLE_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, cache.BackendPostgres, cfg.Cache.Backend)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "test-key", cfg.Google.Key)
	// File still overrides defaults where env is silent
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{"json info", LogConfig{Level: "info", Format: "json"}, false},
		{"console debug", LogConfig{Level: "debug", Format: "console"}, false},
		{"bad level", LogConfig{Level: "shouting", Format: "json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, zap.L())
		})
	}
}
