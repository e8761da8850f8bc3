// Package navigate implements the AI-guided walking loop.
//
// On an 8 second cadence the Navigator bundles the latest camera
// frame, the current coordinates, and the destination into a one-shot
// model call and speaks the returned instruction. The loop is guarded
// by a generation counter: a response that lands after Stop (or after
// a restart) is dropped entirely, so stale instructions are never
// spoken.
package navigate

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors.
var (
	// ErrPermissionDenied means the user denied location access. This
	// is terminal: the loop never retries, the user must change
	// browser settings.
	ErrPermissionDenied = errors.New("navigate: location permission denied")

	// ErrUnsupported means the device has no geolocation capability.
	// Distinct from denial and equally terminal.
	ErrUnsupported = errors.New("navigate: geolocation not supported")

	// ErrAlreadyNavigating is returned when Start is called while a
	// loop is running.
	ErrAlreadyNavigating = errors.New("navigate: already navigating")

	// ErrNoDestination is returned when Start is called with an empty
	// destination.
	ErrNoDestination = errors.New("navigate: destination required")
)

// Position is a geographic coordinate fix.
type Position struct {
	// Latitude in decimal degrees.
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees.
	Longitude float64 `json:"longitude"`

	// Accuracy is the fix radius in meters, 0 if unknown.
	Accuracy float64 `json:"accuracy"`
}

// Locator provides the device position. The web client relays browser
// geolocation fixes into the service; tests use a fake.
type Locator interface {
	// Current returns the latest position. Returns
	// ErrPermissionDenied or ErrUnsupported for the two terminal
	// permission states.
	Current(ctx context.Context) (Position, error)
}

// Adviser produces one walking instruction from a frame, a position,
// and a destination.
type Adviser interface {
	Advise(ctx context.Context, jpeg []byte, pos Position, destination string) (string, error)
}

// Config holds navigation loop settings.
type Config struct {
	// Interval between advice ticks.
	Interval time.Duration

	// TickTimeout bounds a single advice call.
	TickTimeout time.Duration
}

// DefaultConfig returns the production loop configuration.
func DefaultConfig() Config {
	return Config{
		Interval:    8 * time.Second,
		TickTimeout: 7 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New("navigate: interval must be positive")
	}
	if c.TickTimeout <= 0 {
		return errors.New("navigate: tick timeout must be positive")
	}
	return nil
}
