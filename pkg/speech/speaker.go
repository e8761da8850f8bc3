package speech

import (
	"context"
	"fmt"
	"time"

	"github.com/irislabs/go-iris/pkg/audioio"
)

// Output receives synthesized audio. Satisfied by the playback
// scheduler.
type Output interface {
	Enqueue(ctx context.Context, chunk audioio.Chunk) (time.Time, error)
}

// Speaker synthesizes text and queues the audio for playback.
type Speaker struct {
	synth Synthesizer
	out   Output
}

// NewSpeaker creates a speaker over a synthesizer and an audio output.
func NewSpeaker(synth Synthesizer, out Output) *Speaker {
	return &Speaker{synth: synth, out: out}
}

// Speak converts text to audio and enqueues it. It returns once the
// audio is queued, not once it has finished playing.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	result, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("speech: synthesize: %w", err)
	}

	var chunk audioio.Chunk
	chunk.FromBytes(result.Audio, result.SampleRate, 1)

	if _, err := s.out.Enqueue(ctx, chunk); err != nil {
		return fmt.Errorf("speech: enqueue: %w", err)
	}
	return nil
}
