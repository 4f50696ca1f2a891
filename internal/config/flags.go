package config

import "github.com/spf13/pflag"

// Flags holds command-line overrides. Zero values leave the loaded config
// untouched.
type Flags struct {
	ConfigPath    string
	Debug         bool
	LogFile       string
	MaxEdge       float32
	TopTiltDeg    float32
	Width         int
	Height        int
	FovDeg        float32
	JPEGQuality   int
	MetricsListen string
}

// Register adds the override flags to fs.
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file")
	fs.Float32Var(&f.MaxEdge, "max-edge", 0, "Longest guide edge in world units")
	fs.Float32Var(&f.TopTiltDeg, "top-tilt", 0, "Top guide tilt in degrees")
	fs.IntVar(&f.Width, "width", 0, "Viewport width")
	fs.IntVar(&f.Height, "height", 0, "Viewport height")
	fs.Float32Var(&f.FovDeg, "fov", 0, "Vertical field of view in degrees")
	fs.IntVar(&f.JPEGQuality, "jpeg-quality", 0, "JPEG export quality (1-100)")
	fs.StringVar(&f.MetricsListen, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.MaxEdge > 0 {
		cfg.Capture.MaxEdge = f.MaxEdge
	}
	if f.TopTiltDeg > 0 {
		cfg.Capture.TopTiltDeg = f.TopTiltDeg
	}
	if f.Width > 0 {
		cfg.Viewport.Width = f.Width
	}
	if f.Height > 0 {
		cfg.Viewport.Height = f.Height
	}
	if f.FovDeg > 0 {
		cfg.Viewport.FovDeg = f.FovDeg
	}
	if f.JPEGQuality > 0 {
		cfg.Export.JPEGQuality = f.JPEGQuality
	}
	if f.MetricsListen != "" {
		cfg.Metrics.Listen = f.MetricsListen
	}
}
