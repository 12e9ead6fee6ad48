package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/gomol/internal/engine"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.TargetFPS)
	assert.Equal(t, "1BNA", cfg.DefaultStructure)
	assert.Empty(t, cfg.JournalPath)
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := fromLookup(Default(), env(map[string]string{
		"GOMOL_REMOTE_URL":     "https://models.rcsb.org/{id}.bcif",
		"GOMOL_FPS":            "24",
		"GOMOL_WATCH_DEBOUNCE": "1s",
		"GOMOL_JOURNAL":        "/tmp/journal.db",
		"GOMOL_REPRESENTATION": "ball-stick",
		"GOMOL_COLOR":          "rainbow",
		"GOMOL_S3_ENDPOINT":    "http://localhost:9000",
		"GOMOL_S3_PATH_STYLE":  "TRUE",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://models.rcsb.org/{id}.bcif", cfg.RemoteURLTemplate)
	assert.Equal(t, 24, cfg.TargetFPS)
	assert.Equal(t, time.Second, cfg.WatchDebounce)
	assert.Equal(t, "/tmp/journal.db", cfg.JournalPath)
	assert.Equal(t, engine.BallAndStick, cfg.DefaultRepresentation)
	assert.Equal(t, engine.Rainbow, cfg.DefaultColor)
	assert.Equal(t, S3{Region: "us-east-1", Endpoint: "http://localhost:9000", PathStyle: true}, cfg.S3)
}

func TestEnvErrors(t *testing.T) {
	_, err := fromLookup(Default(), env(map[string]string{
		"GOMOL_FPS":   "fast",
		"GOMOL_COLOR": "plaid",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOMOL_FPS")
	assert.Contains(t, err.Error(), "GOMOL_COLOR")

	_, err = fromLookup(Default(), env(map[string]string{"GOMOL_REMOTE_URL": "https://example.org/x.cif"}))
	assert.ErrorContains(t, err, "{id}")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.TargetFPS = 0
	cfg.WatchDebounce = -time.Second
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fps")
	assert.Contains(t, err.Error(), "debounce")
}
