// Package camera provides JPEG frame sources for the vision modes.
//
// A Source hands out the most recent camera frame as an encoded JPEG.
// The concrete source is usually the WebRTC ingest (frames pushed from
// the client's browser), but a local gocv webcam and a mock are also
// provided for development and tests.
package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNoFrame is returned when a frame is requested before any frame
// has been captured.
var ErrNoFrame = errors.New("camera: no frame available")

// Frame is a single captured camera frame.
type Frame struct {
	// JPEG is the encoded image data.
	JPEG []byte

	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int

	// Timestamp is when the frame was captured.
	Timestamp time.Time
}

// Source provides camera frames.
type Source interface {
	// Start begins frame capture.
	Start(ctx context.Context) error

	// Stop halts frame capture.
	// It is safe to call Stop multiple times.
	Stop() error

	// Frame returns the most recent captured frame.
	// Returns ErrNoFrame if no frame has been captured yet.
	Frame() (Frame, error)

	// Name returns the backend name (e.g., "webcam", "ingest", "mock").
	Name() string

	// Close releases all resources.
	io.Closer
}

// Config holds camera capture settings.
type Config struct {
	// DeviceID is the capture device index (webcam backend only).
	DeviceID int `json:"device_id"`

	// Width and Height are the requested capture resolution.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Framerate is the target capture rate in frames per second.
	Framerate int `json:"framerate"`

	// Quality is the JPEG encode quality (1-100).
	Quality int `json:"quality"`
}

// DefaultConfig returns the recommended capture configuration.
// 640x480 keeps detection latency low on modest hardware.
func DefaultConfig() Config {
	return Config{
		DeviceID:  0,
		Width:     640,
		Height:    480,
		Framerate: 15,
		Quality:   85,
	}
}

// HighResConfig returns a 720p configuration for when detection
// accuracy matters more than latency.
func HighResConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Width < 160 || c.Width > 4096 {
		return fmt.Errorf("width must be between 160 and 4096, got %d", c.Width)
	}
	if c.Height < 120 || c.Height > 2160 {
		return fmt.Errorf("height must be between 120 and 2160, got %d", c.Height)
	}
	if c.Framerate < 1 || c.Framerate > 60 {
		return fmt.Errorf("framerate must be between 1 and 60, got %d", c.Framerate)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", c.Quality)
	}
	return nil
}

// Interval returns the time between frames at the configured rate.
func (c *Config) Interval() time.Duration {
	if c.Framerate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.Framerate)
}
