// Package audioio provides audio capture and playback plumbing for go-iris.
//
// Audio flows through the service as PCM16 chunks. Sources produce chunks
// (the WebRTC ingest from the client's microphone, or a mock for tests) and
// sinks consume them (the playback scheduler's output, or a mock). All modes
// are written against the Source and Sink interfaces so they do not care
// where media actually comes from.
package audioio

import (
	"fmt"
	"time"
)

// Config holds audio configuration.
type Config struct {
	// SampleRate is the audio sample rate in Hz.
	// Default: 16000 (Gemini Live input format)
	SampleRate int `json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `json:"channels"`

	// BufferDuration is the size of audio buffers.
	// Default: 20ms (320 samples at 16kHz)
	BufferDuration time.Duration `json:"buffer_duration"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:     16000, // Gemini Live input requirement
		Channels:       1,     // Mono
		BufferDuration: 20 * time.Millisecond,
	}
}

// PlaybackConfig returns a Config matching the live endpoint's audio output.
func PlaybackConfig() Config {
	cfg := DefaultConfig()
	cfg.SampleRate = 24000 // Gemini Live outputs 24kHz
	return cfg
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	return nil
}

// BufferSize returns the number of samples per buffer.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// BufferBytes returns the size of a buffer in bytes (assuming int16 samples).
func (c *Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2 // 2 bytes per int16 sample
}

// Chunk represents a chunk of PCM16 audio data.
type Chunk struct {
	// Samples contains PCM16 audio samples (little-endian).
	Samples []int16

	// SampleRate is the sample rate of this chunk.
	SampleRate int

	// Channels is the number of channels in this chunk.
	Channels int
}

// Bytes returns the raw bytes of the audio chunk.
func (c *Chunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// FromBytes populates the chunk from raw PCM16 bytes.
func (c *Chunk) FromBytes(data []byte, sampleRate, channels int) {
	c.SampleRate = sampleRate
	c.Channels = channels
	c.Samples = BytesToSamples(data)
}

// Duration returns the playback duration of this chunk.
func (c *Chunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	seconds := float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
	return time.Duration(seconds * float64(time.Second))
}
