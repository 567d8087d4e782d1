package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 30, cfg.FPS)
	assert.InDelta(t, 55.0, cfg.FOVDegrees, 1e-9)
	assert.NoError(t, cfg.validate())

	th := cfg.Thresholds()
	assert.InDelta(t, 0.25, th.DarkBelow, 1e-9)
	assert.InDelta(t, 0.75, th.LightAbove, 1e-9)
	assert.InDelta(t, 0.5, th.MetalAbove, 1e-9)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesSelectively(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plinth.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
fps = 60

[lighting]
dark_below = 0.3

[log]
level = "debug"
file = "viewer.log"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.FPS)
	assert.InDelta(t, 0.3, cfg.Lighting.DarkBelow, 1e-9)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched keys keep their defaults.
	assert.InDelta(t, 55.0, cfg.FOVDegrees, 1e-9)
	assert.InDelta(t, 0.75, cfg.Lighting.LightAbove, 1e-9)
}

func TestLoadRejectsInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"bad fps":  "fps = -1",
		"bad fov":  "fov_degrees = 200",
		"bad toml": "fps = ][",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "plinth.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestNewLoggerToFile(t *testing.T) {
	cfg := Default()
	cfg.Log.File = filepath.Join(t.TempDir(), "viewer.log")
	cfg.Log.Level = "debug"

	log, closer, err := cfg.NewLogger()
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	log.Debug("hello", "n", 1)

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestNewLoggerDiscardsWithoutFile(t *testing.T) {
	log, closer, err := Default().NewLogger()
	require.NoError(t, err)
	assert.Nil(t, closer)
	require.NotNil(t, log)
	log.Info("dropped")
}
