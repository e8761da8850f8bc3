package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/irislabs/go-iris/pkg/camera"
)

// staleAfter is how old a frame may be before Frame refuses to serve
// it, so pipelines never act on an image from a dead connection.
const staleAfter = 5 * time.Second

// FrameSource exposes JPEG stills from the browser's "frames" data
// channel as a camera.Source. The channel carries whole JPEG images;
// only the newest is kept.
type FrameSource struct {
	mu       sync.Mutex
	frame    camera.Frame
	hasFrame bool
	closed   bool
	received int64
}

// NewFrameSource creates an empty frame source.
func NewFrameSource() *FrameSource {
	return &FrameSource{}
}

// handleMessage stores one data-channel message as the latest frame.
// String messages are control noise and ignored.
func (f *FrameSource) handleMessage(msg webrtc.DataChannelMessage) {
	if msg.IsString || len(msg.Data) == 0 {
		return
	}

	jpeg := make([]byte, len(msg.Data))
	copy(jpeg, msg.Data)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.frame = camera.Frame{
		JPEG:      jpeg,
		Timestamp: time.Now(),
	}
	f.hasFrame = true
	f.received++
	f.mu.Unlock()
}

// Start is a no-op: frames arrive whenever the browser sends them.
func (f *FrameSource) Start(ctx context.Context) error {
	return nil
}

// Stop is a no-op.
func (f *FrameSource) Stop() error {
	return nil
}

// Frame returns the latest still. A frame older than staleAfter, or
// no frame at all, yields camera.ErrNoFrame.
func (f *FrameSource) Frame() (camera.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hasFrame || f.closed {
		return camera.Frame{}, camera.ErrNoFrame
	}
	if time.Since(f.frame.Timestamp) > staleAfter {
		return camera.Frame{}, camera.ErrNoFrame
	}
	return f.frame, nil
}

// Received returns how many frames have arrived.
func (f *FrameSource) Received() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received
}

// Name returns "ingest".
func (f *FrameSource) Name() string {
	return "ingest"
}

// Close releases the source.
func (f *FrameSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.hasFrame = false
	return nil
}

var _ camera.Source = (*FrameSource)(nil)
