// Package config handles arbox configuration loading and management.
package config

import (
	"fmt"
	gomath "math"

	"go.uber.org/multierr"

	"github.com/Faultbox/arbox/internal/logger"
	"github.com/Faultbox/arbox/internal/scene"
	"github.com/Faultbox/arbox/internal/solver"
)

// Config holds all settings.
type Config struct {
	Capture  CaptureConfig  `yaml:"capture"`
	Viewport ViewportConfig `yaml:"viewport"`
	Session  SessionConfig  `yaml:"session"`
	Export   ExportConfig   `yaml:"export"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CaptureConfig holds the solver constants.
type CaptureConfig struct {
	MaxEdge    float32 `yaml:"max_edge"`     // Longest edge a guide may propose, in world units
	TopTiltDeg float32 `yaml:"top_tilt_deg"` // Tilt of the top-edge guide line
	FloorY     float32 `yaml:"floor_y"`      // Floor height used by the plane locator
}

// ViewportConfig describes the host screen.
type ViewportConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FovDeg float32 `yaml:"fov_deg"` // Vertical field of view
}

// SessionConfig holds channel sizes of the capture session.
type SessionConfig struct {
	PoseBuffer     int `yaml:"pose_buffer"`
	SnapshotBuffer int `yaml:"snapshot_buffer"`
}

// ExportConfig holds view export settings.
type ExportConfig struct {
	JPEGQuality int `yaml:"jpeg_quality"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // Empty disables the endpoint
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			MaxEdge:    1.7,
			TopTiltDeg: 10,
			FloorY:     0,
		},
		Viewport: ViewportConfig{
			Width:  1170,
			Height: 2532,
			FovDeg: 60,
		},
		Session: SessionConfig{
			PoseBuffer:     4,
			SnapshotBuffer: 8,
		},
		Export: ExportConfig{
			JPEGQuality: 85,
		},
		Metrics: MetricsConfig{
			Listen: "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Params returns the solver constants.
func (c CaptureConfig) Params() solver.Params {
	return solver.Params{
		MaxEdge: c.MaxEdge,
		TopTilt: c.TopTiltDeg * gomath.Pi / 180,
	}
}

// Viewport returns the scene viewport.
func (v ViewportConfig) Viewport() scene.Viewport {
	return scene.NewViewport(v.Width, v.Height, v.FovDeg)
}

// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	var err error
	if c.Capture.MaxEdge <= 0 {
		err = multierr.Append(err, fmt.Errorf("capture.max_edge must be positive, got %v", c.Capture.MaxEdge))
	}
	if c.Capture.TopTiltDeg < 0 || c.Capture.TopTiltDeg >= 90 {
		err = multierr.Append(err, fmt.Errorf("capture.top_tilt_deg must be in [0, 90), got %v", c.Capture.TopTiltDeg))
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		err = multierr.Append(err, fmt.Errorf("viewport must be positive, got %dx%d", c.Viewport.Width, c.Viewport.Height))
	}
	if c.Viewport.FovDeg <= 0 || c.Viewport.FovDeg >= 180 {
		err = multierr.Append(err, fmt.Errorf("viewport.fov_deg must be in (0, 180), got %v", c.Viewport.FovDeg))
	}
	if c.Session.PoseBuffer < 1 || c.Session.SnapshotBuffer < 1 {
		err = multierr.Append(err, fmt.Errorf("session buffers must be at least 1, got %d/%d", c.Session.PoseBuffer, c.Session.SnapshotBuffer))
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		err = multierr.Append(err, fmt.Errorf("export.jpeg_quality must be in [1, 100], got %d", c.Export.JPEGQuality))
	}
	if _, lerr := logger.ParseLevel(c.Logging.Level); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("logging.level: %w", lerr))
	}
	return err
}
