// Package live manages a streaming scene-description session against
// the Gemini Live API.
//
// A Session owns one bidirectional websocket: microphone audio and
// 1 Hz camera frames go up, transcript fragments and PCM audio come
// back down. The session is a small state machine
//
//	idle -> connecting -> active -> (stopped | error)
//
// with idempotent teardown: Stop is safe from any state, any number of
// times, and a per-session epoch keeps goroutines from a torn-down
// session from ever touching its successor.
package live

import (
	"context"
	"errors"
	"time"

	"github.com/irislabs/go-iris/pkg/audioio"
)

// Sentinel errors.
var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("live: API key required")

	// ErrAlreadyStarted is returned when Start is called while a
	// session is connecting or active.
	ErrAlreadyStarted = errors.New("live: session already started")

	// ErrNotConnected is returned when sending on a session that is
	// not active.
	ErrNotConnected = errors.New("live: not connected")
)

// State identifies where a session is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateStopped
	StateError
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session has finished.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateError
}

// Config holds session configuration.
type Config struct {
	// APIKey authenticates against the Gemini Live endpoint.
	APIKey string

	// Endpoint is the websocket URL. Empty means the production
	// Gemini Live endpoint; tests point this at a local server.
	Endpoint string

	// Model is the Gemini model to use.
	Model string

	// Voice is the prebuilt voice name for audio responses.
	Voice string

	// SystemPrompt sets the session's system instruction.
	SystemPrompt string

	// FrameInterval is how often a camera frame is sent upstream.
	FrameInterval time.Duration

	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the production session configuration.
func DefaultConfig() Config {
	return Config{
		Model: "models/gemini-2.0-flash-exp",
		Voice: "Puck",
		SystemPrompt: "You are a scene descriptor for a blind or low-vision user. " +
			"Describe what the camera sees in short, concrete sentences. " +
			"Lead with hazards and obstacles. Answer questions about the scene directly.",
		FrameInterval:    time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.FrameInterval <= 0 {
		return errors.New("live: frame interval must be positive")
	}
	return nil
}

// AudioOutput receives the session's downstream audio. Satisfied by
// the playback scheduler.
type AudioOutput interface {
	// Enqueue schedules a chunk and returns its start time.
	Enqueue(ctx context.Context, chunk audioio.Chunk) (time.Time, error)

	// Interrupt discards all pending audio.
	Interrupt()
}
