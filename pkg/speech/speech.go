// Package speech provides text-to-speech synthesis for spoken feedback.
//
// Detection summaries and walking instructions are short sentences, so
// the package exposes a simple one-shot Synthesizer interface. The
// OpenAI provider returns raw PCM16 at 24kHz, which feeds straight
// into the playback scheduler without transcoding.
package speech

import (
	"context"
	"time"
)

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Synthesize converts text to audio, returning the complete buffer.
	Synthesize(ctx context.Context, text string) (*Result, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Result is a complete synthesis result.
type Result struct {
	// Audio contains raw PCM16 little-endian samples.
	Audio []byte

	// SampleRate of the audio in Hz.
	SampleRate int

	// Duration is the estimated playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to last byte in milliseconds.
	LatencyMs int64
}
