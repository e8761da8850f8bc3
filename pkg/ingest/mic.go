package ingest

import (
	"context"
	"io"
	"sync"

	"github.com/irislabs/go-iris/pkg/audioio"
)

// micQueueSize is how many chunks can sit unread before the oldest
// are dropped. At 20ms chunks this is about two seconds.
const micQueueSize = 100

// MicSource exposes the browser's microphone track as an
// audioio.Source. The track decoder pushes chunks in; the live
// session reads them out.
type MicSource struct {
	cfg audioio.Config

	mu      sync.Mutex
	running bool
	closed  bool
	ch      chan audioio.Chunk

	chunksRead  int64
	samplesRead int64
	overruns    int64
}

func newMicSource(sampleRate int) *MicSource {
	cfg := audioio.DefaultConfig()
	cfg.SampleRate = sampleRate
	return &MicSource{
		cfg: cfg,
		ch:  make(chan audioio.Chunk, micQueueSize),
	}
}

// push delivers one decoded chunk. When no one is reading fast enough
// the oldest chunk is dropped: stale microphone audio is worthless.
func (m *MicSource) push(samples []int16) {
	m.mu.Lock()
	if m.closed || !m.running {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	chunk := audioio.Chunk{
		Samples:    samples,
		SampleRate: m.cfg.SampleRate,
		Channels:   1,
	}

	select {
	case m.ch <- chunk:
	default:
		m.mu.Lock()
		m.overruns++
		m.mu.Unlock()
		select {
		case <-m.ch:
		default:
		}
		select {
		case m.ch <- chunk:
		default:
		}
	}
}

// Start begins delivering chunks to readers.
func (m *MicSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	m.running = true
	return nil
}

// Stop halts delivery. Chunks already queued remain readable.
func (m *MicSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

// Read returns the next chunk, blocking until one arrives, the source
// closes, or ctx is done.
func (m *MicSource) Read(ctx context.Context) (audioio.Chunk, error) {
	select {
	case chunk, ok := <-m.ch:
		if !ok {
			return audioio.Chunk{}, io.EOF
		}
		m.mu.Lock()
		m.chunksRead++
		m.samplesRead += int64(len(chunk.Samples))
		m.mu.Unlock()
		return chunk, nil
	case <-ctx.Done():
		return audioio.Chunk{}, ctx.Err()
	}
}

// Stream returns the chunk channel.
func (m *MicSource) Stream() <-chan audioio.Chunk {
	return m.ch
}

// Config returns the audio configuration.
func (m *MicSource) Config() audioio.Config {
	return m.cfg
}

// Name returns "ingest".
func (m *MicSource) Name() string {
	return "ingest"
}

// Close releases the source. Pending reads return io.EOF.
func (m *MicSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.running = false
	close(m.ch)
	return nil
}

// Stats returns source statistics.
func (m *MicSource) Stats() audioio.SourceStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return audioio.SourceStats{
		ChunksRead:  m.chunksRead,
		SamplesRead: m.samplesRead,
		Overruns:    m.overruns,
		Running:     m.running,
		Backend:     "ingest",
	}
}

var _ audioio.SourceWithStats = (*MicSource)(nil)
