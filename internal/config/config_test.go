package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banktcg/gradesync/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Sync.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Sync.Delay())
	assert.Equal(t, float64(15), cfg.Sync.MinPrice)
	assert.Equal(t, []int{7, 8, 9, 10}, cfg.Sync.Grades)
	assert.Equal(t, 14, cfg.Aggregate.WindowDays)
	assert.Equal(t, 3, cfg.Aggregate.RecentSample)
	assert.Equal(t, "https://www.pricecharting.com", cfg.Lookup.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Lookup.Timeout())
	assert.Equal(t, "noop", cfg.Archive.Provider)
	assert.Equal(t, "noop", cfg.Notify.Provider)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gradesync.yaml")
	content := `
db:
  dsn: postgres://localhost:5432/gradesync
sync:
  batch_size: 25
  delay_seconds: 0.5
  min_price: 20
aggregate:
  window_days: 7
logging:
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432/gradesync", cfg.DB.DSN)
	assert.Equal(t, 25, cfg.Sync.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.Delay())
	assert.Equal(t, float64(20), cfg.Sync.MinPrice)
	assert.Equal(t, 7, cfg.Aggregate.WindowDays)
	assert.True(t, cfg.Logging.Development)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.Aggregate.RecentSample)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"zero batch size":    "sync:\n  batch_size: 0\n",
		"negative delay":     "sync:\n  delay_seconds: -1\n",
		"grade out of range": "sync:\n  grades: [7, 11]\n",
		"gcs without bucket": "archive:\n  provider: gcs\n",
		"pubsub incomplete":  "notify:\n  provider: pubsub\n  project_id: p\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		_, err := config.Load(path)
		assert.Error(t, err, name)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
