package app

import (
	"context"
	"sync"

	"github.com/irislabs/go-iris/pkg/audioio"
	"github.com/irislabs/go-iris/pkg/hub"
)

// clearSignal is the control frame the client listens for to drop its
// buffered audio on barge-in.
type clearSignal struct {
	Event string `json:"event"`
}

// HubSink streams PCM16 audio to browser clients over a websocket
// hub. The playback scheduler writes scheduled chunks here; the
// client plays them as they arrive. Clear broadcasts a control frame
// telling clients to drop anything still buffered.
type HubSink struct {
	cfg audioio.Config
	hub *hub.Hub

	mu      sync.Mutex
	running bool
	closed  bool

	chunksWritten  int64
	samplesWritten int64
}

// NewHubSink creates a sink broadcasting on h.
func NewHubSink(cfg audioio.Config, h *hub.Hub) *HubSink {
	return &HubSink{cfg: cfg, hub: h}
}

// Start begins accepting audio.
func (s *HubSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return audioio.ErrSinkClosed
	}
	s.running = true
	return nil
}

// Stop halts audio acceptance.
func (s *HubSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Write broadcasts one chunk as a binary frame.
func (s *HubSink) Write(ctx context.Context, chunk audioio.Chunk) error {
	s.mu.Lock()
	if s.closed || !s.running {
		s.mu.Unlock()
		return audioio.ErrSinkClosed
	}
	s.chunksWritten++
	s.samplesWritten += int64(len(chunk.Samples))
	s.mu.Unlock()

	s.hub.BroadcastBinary(chunk.Bytes())
	return nil
}

// Flush is a no-op: clients play as frames arrive.
func (s *HubSink) Flush(ctx context.Context) error {
	return nil
}

// Clear tells every client to drop buffered audio.
func (s *HubSink) Clear() error {
	return s.hub.BroadcastJSON(clearSignal{Event: "clear"})
}

// Config returns the audio configuration.
func (s *HubSink) Config() audioio.Config {
	return s.cfg
}

// Name returns "hub".
func (s *HubSink) Name() string {
	return "hub"
}

// Close releases the sink.
func (s *HubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.running = false
	return nil
}

// Stats returns sink statistics.
func (s *HubSink) Stats() audioio.SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return audioio.SinkStats{
		ChunksWritten:  s.chunksWritten,
		SamplesWritten: s.samplesWritten,
		Running:        s.running,
		Backend:        "hub",
	}
}

var _ audioio.SinkWithStats = (*HubSink)(nil)
