package camera

import (
	"context"
	"sync"
	"time"
)

// Mock is a camera source for testing. Frames are pushed in by the
// test via Push instead of captured from hardware.
type Mock struct {
	mu      sync.Mutex
	frame   Frame
	hasData bool
	running bool
	err     error

	// StartCalls counts how many times Start was invoked.
	StartCalls int
	// StopCalls counts how many times Stop was invoked.
	StopCalls int
}

// NewMock creates an empty mock camera source.
func NewMock() *Mock {
	return &Mock{}
}

// Push sets the frame returned by subsequent Frame calls.
func (m *Mock) Push(jpeg []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frame = Frame{
		JPEG:      jpeg,
		Width:     640,
		Height:    480,
		Timestamp: time.Now(),
	}
	m.hasData = true
}

// SetError makes Frame return err instead of a frame.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Start marks the source as running.
func (m *Mock) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	m.StartCalls++
	return nil
}

// Stop marks the source as stopped.
func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.StopCalls++
	return nil
}

// Frame returns the pushed frame, the configured error, or ErrNoFrame.
func (m *Mock) Frame() (Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Frame{}, m.err
	}
	if !m.hasData {
		return Frame{}, ErrNoFrame
	}
	return m.frame, nil
}

// Running reports whether Start has been called without a matching Stop.
func (m *Mock) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Name returns "mock".
func (m *Mock) Name() string {
	return "mock"
}

// Close is a no-op for the mock.
func (m *Mock) Close() error {
	return m.Stop()
}

var _ Source = (*Mock)(nil)
