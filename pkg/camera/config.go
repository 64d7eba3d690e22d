// Package camera opens the kiosk's capture device and yields frames.
package camera

import "fmt"

// Config holds the capture settings applied when the device is opened.
type Config struct {
	// MaxDevices bounds index probing: indices 0..MaxDevices-1 are tried.
	MaxDevices int `json:"max_devices"`

	// Requested resolution. Zero keeps the driver default.
	Width     int `json:"width"`
	Height    int `json:"height"`
	Framerate int `json:"framerate"`

	// SwapDimensions exchanges the width and height reported by the driver.
	// Some sensors report a transposed size; verify per deployment.
	SwapDimensions bool `json:"swap_dimensions"`
}

// Limits enforced by Validate.
const (
	MaxProbeDevices = 16
	MaxWidth        = 4096
	MaxHeight       = 2160
	MaxFramerate    = 120
)

// DefaultConfig probes the first five indices and keeps the driver's
// resolution.
func DefaultConfig() Config {
	return Config{
		MaxDevices: 5,
	}
}

// LegacyConfig requests the 640x480 mode most USB webcams support.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.MaxDevices < 1 || c.MaxDevices > MaxProbeDevices {
		errors = append(errors, fmt.Sprintf("max_devices must be between 1 and %d", MaxProbeDevices))
	}
	if c.Width != 0 && (c.Width < 160 || c.Width > MaxWidth) {
		errors = append(errors, fmt.Sprintf("width must be 0 (driver default) or between 160 and %d", MaxWidth))
	}
	if c.Height != 0 && (c.Height < 120 || c.Height > MaxHeight) {
		errors = append(errors, fmt.Sprintf("height must be 0 (driver default) or between 120 and %d", MaxHeight))
	}
	if (c.Width == 0) != (c.Height == 0) {
		errors = append(errors, "width and height must be set together")
	}
	if c.Framerate < 0 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 0 and %d", MaxFramerate))
	}

	return errors
}
