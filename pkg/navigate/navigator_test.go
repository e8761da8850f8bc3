package navigate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/irislabs/go-iris/pkg/camera"
)

// fakeLocator returns a fixed position or error.
type fakeLocator struct {
	pos Position
	err error
}

func (f *fakeLocator) Current(ctx context.Context) (Position, error) {
	if f.err != nil {
		return Position{}, f.err
	}
	return f.pos, nil
}

// fakeAdviser returns scripted instructions. If block is non-nil,
// Advise waits on it before returning.
type fakeAdviser struct {
	mu          sync.Mutex
	instruction string
	err         error
	block       chan struct{}
	calls       int
}

func (f *fakeAdviser) Advise(ctx context.Context, jpeg []byte, pos Position, destination string) (string, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	instruction, err := f.instruction, f.err
	f.mu.Unlock()

	// Deliberately ignores ctx while blocked, so a response can land
	// after Stop and exercise the liveness guard.
	if block != nil {
		<-block
	}
	return instruction, err
}

func (f *fakeAdviser) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingSpeaker struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingSpeaker) Speak(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingSpeaker) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.texts))
	copy(out, r.texts)
	return out
}

func fastConfig() Config {
	return Config{
		Interval:    10 * time.Millisecond,
		TickTimeout: time.Second,
	}
}

func testFrames() *camera.Mock {
	cam := camera.NewMock()
	cam.Push([]byte{0xFF, 0xD8})
	return cam
}

func newTestNavigator(t *testing.T, adviser Adviser, speaker Speaker) *Navigator {
	t.Helper()
	locator := &fakeLocator{pos: Position{Latitude: 37.77, Longitude: -122.42}}
	n, err := New(fastConfig(), testFrames(), locator, adviser, speaker)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(n.Stop)
	return n
}

func TestStartRequiresDestination(t *testing.T) {
	n := newTestNavigator(t, &fakeAdviser{instruction: "go"}, nil)
	if err := n.Start(context.Background(), ""); !errors.Is(err, ErrNoDestination) {
		t.Errorf("Expected ErrNoDestination, got %v", err)
	}
}

func TestPermissionDeniedIsTerminal(t *testing.T) {
	locator := &fakeLocator{err: ErrPermissionDenied}
	n, err := New(fastConfig(), testFrames(), locator, &fakeAdviser{}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = n.Start(context.Background(), "the pharmacy")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Expected ErrPermissionDenied, got %v", err)
	}
	if n.Active() {
		t.Error("Loop must not run after permission denial")
	}
}

func TestUnsupportedIsDistinctFromDenied(t *testing.T) {
	locator := &fakeLocator{err: ErrUnsupported}
	n, err := New(fastConfig(), testFrames(), locator, &fakeAdviser{}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = n.Start(context.Background(), "the pharmacy")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
	if errors.Is(err, ErrPermissionDenied) {
		t.Error("Unsupported must not match ErrPermissionDenied")
	}
}

func TestLoopSpeaksInstructions(t *testing.T) {
	adviser := &fakeAdviser{instruction: "Walk straight for ten meters."}
	speaker := &recordingSpeaker{}
	n := newTestNavigator(t, adviser, speaker)

	if err := n.Start(context.Background(), "the park"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(speaker.Texts()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	texts := speaker.Texts()
	if len(texts) == 0 {
		t.Fatal("No instruction spoken")
	}
	if texts[0] != "Walk straight for ten meters." {
		t.Errorf("Unexpected instruction %q", texts[0])
	}
	if got := n.Instruction(); got != "Walk straight for ten meters." {
		t.Errorf("Expected instruction held, got %q", got)
	}
	if got := n.Destination(); got != "the park" {
		t.Errorf("Expected destination 'the park', got %q", got)
	}
}

func TestSecondStartRejected(t *testing.T) {
	n := newTestNavigator(t, &fakeAdviser{instruction: "go"}, nil)

	if err := n.Start(context.Background(), "the park"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	err := n.Start(context.Background(), "the station")
	if !errors.Is(err, ErrAlreadyNavigating) {
		t.Errorf("Expected ErrAlreadyNavigating, got %v", err)
	}
}

func TestResponseAfterStopDropped(t *testing.T) {
	block := make(chan struct{})
	adviser := &fakeAdviser{instruction: "stale instruction", block: block}
	speaker := &recordingSpeaker{}
	n := newTestNavigator(t, adviser, speaker)

	if err := n.Start(context.Background(), "the park"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Wait until a tick is in flight, then stop before it resolves.
	deadline := time.Now().Add(2 * time.Second)
	for adviser.Calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if adviser.Calls() == 0 {
		t.Fatal("Tick never started")
	}

	n.Stop()
	close(block) // the in-flight response now arrives, after Stop

	time.Sleep(50 * time.Millisecond)

	if got := n.Instruction(); got != "" {
		t.Errorf("Stale response must not update the instruction, got %q", got)
	}
	if texts := speaker.Texts(); len(texts) != 0 {
		t.Errorf("Stale response must not be spoken, got %v", texts)
	}
}

func TestFailedTickContinues(t *testing.T) {
	adviser := &fakeAdviser{err: errors.New("model overloaded")}
	n := newTestNavigator(t, adviser, nil)

	if err := n.Start(context.Background(), "the park"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Multiple ticks should run despite every one failing.
	deadline := time.Now().Add(2 * time.Second)
	for adviser.Calls() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if adviser.Calls() < 3 {
		t.Errorf("Expected the loop to keep ticking after failures, got %d ticks", adviser.Calls())
	}
	if !n.Active() {
		t.Error("Loop must survive per-tick failures")
	}
}

func TestStopIdempotent(t *testing.T) {
	n := newTestNavigator(t, &fakeAdviser{instruction: "go"}, nil)

	if err := n.Start(context.Background(), "the park"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		n.Stop()
	}
	if n.Active() {
		t.Error("Expected inactive after Stop")
	}
	if got := n.Destination(); got != "" {
		t.Errorf("Expected empty destination after Stop, got %q", got)
	}

	// Can start again after a clean stop.
	if err := n.Start(context.Background(), "the station"); err != nil {
		t.Errorf("Restart failed: %v", err)
	}
}
