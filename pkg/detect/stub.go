package detect

import "sync"

// Stub is a canned detector for tests and development without a model file.
// It returns the configured boxes for every frame.
type Stub struct {
	mu     sync.Mutex
	boxes  []Box
	err    error
	calls  int
	closed bool
}

// NewStub creates a stub detector returning the given boxes.
func NewStub(boxes []Box) *Stub {
	return &Stub{boxes: boxes}
}

// SetError makes subsequent Detect calls fail with err.
func (s *Stub) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Detect returns the canned boxes.
func (s *Stub) Detect(jpeg []byte) ([]Box, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Box, len(s.boxes))
	copy(out, s.boxes)
	return out, nil
}

// Calls returns how many times Detect has been invoked.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Close marks the stub closed.
func (s *Stub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Detector = (*Stub)(nil)
