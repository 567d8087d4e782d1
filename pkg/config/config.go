// Package config holds the viewer's tunable constants: frame rate, camera
// field of view, lighting classification bands, logging. All of them have
// stock defaults; a TOML file overrides selectively.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/plinth3d/plinth/pkg/view"
)

// Config is the root of the viewer configuration.
type Config struct {
	FPS         int     `toml:"fps"`
	FOVDegrees  float64 `toml:"fov_degrees"`
	PanelMargin int     `toml:"panel_margin"`

	Lighting Lighting `toml:"lighting"`
	Log      Log      `toml:"log"`
}

// Lighting carries the heuristic's classification band edges.
type Lighting struct {
	DarkBelow  float64 `toml:"dark_below"`
	LightAbove float64 `toml:"light_above"`
	MetalAbove float64 `toml:"metal_above"`
}

// Log configures the session log. The viewer owns the terminal, so logs go
// to a file, never stderr.
type Log struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
	File   string `toml:"file"`   // empty disables logging
}

// Default returns the stock configuration.
func Default() Config {
	th := view.DefaultThresholds()
	return Config{
		FPS:         30,
		FOVDegrees:  55,
		PanelMargin: 1,
		Lighting: Lighting{
			DarkBelow:  th.DarkBelow,
			LightAbove: th.LightAbove,
			MetalAbove: th.MetalAbove,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML file over the defaults. A missing file is not an
// error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.FPS <= 0 {
		return errors.New("fps must be positive")
	}
	if c.FOVDegrees <= 0 || c.FOVDegrees >= 180 {
		return errors.New("fov_degrees must be in (0, 180)")
	}
	if c.PanelMargin < 0 {
		return errors.New("panel_margin must not be negative")
	}
	return nil
}

// Thresholds converts the lighting section for the heuristic.
func (c Config) Thresholds() view.Thresholds {
	return view.Thresholds{
		DarkBelow:  c.Lighting.DarkBelow,
		LightAbove: c.Lighting.LightAbove,
		MetalAbove: c.Lighting.MetalAbove,
	}
}

// NewLogger creates the session logger. It does not set the global logger,
// allowing for isolated logger instances. The returned closer is non-nil
// when a log file was opened.
func (c Config) NewLogger() (*slog.Logger, io.Closer, error) {
	if c.Log.File == "" {
		// Discard: the terminal is owned by the renderer.
		return slog.New(slog.DiscardHandler), nil, nil
	}

	f, err := os.OpenFile(c.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	var level slog.Level
	switch c.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Log.Format == "json" {
		handler = slog.NewJSONHandler(f, handlerOpts)
	} else {
		handler = slog.NewTextHandler(f, handlerOpts)
	}

	return slog.New(handler), f, nil
}
