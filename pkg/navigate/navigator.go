package navigate

import (
	"context"
	"sync"
	"time"

	"github.com/irislabs/go-iris/internal/log"
	"github.com/irislabs/go-iris/pkg/camera"
)

// Speaker speaks a short message to the user.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Navigator runs the walking-guidance loop.
type Navigator struct {
	cfg     Config
	frames  camera.Source
	locator Locator
	adviser Adviser
	speaker Speaker

	mu          sync.Mutex
	active      bool
	generation  uint64 // bumped on every Start and Stop
	destination string
	instruction string
	cancel      context.CancelFunc

	// OnInstruction is called with each new instruction. Set before
	// Start.
	OnInstruction func(text string)
}

// New creates a navigator. speaker may be nil.
func New(cfg Config, frames camera.Source, locator Locator, adviser Adviser, speaker Speaker) (*Navigator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Navigator{
		cfg:     cfg,
		frames:  frames,
		locator: locator,
		adviser: adviser,
		speaker: speaker,
	}, nil
}

// Start begins the guidance loop toward destination.
//
// The first location fix happens synchronously so permission problems
// surface immediately: ErrPermissionDenied and ErrUnsupported are
// returned as-is and are terminal. After a successful Start the loop
// ticks every Interval until Stop.
func (n *Navigator) Start(ctx context.Context, destination string) error {
	if destination == "" {
		return ErrNoDestination
	}

	n.mu.Lock()
	if n.active {
		n.mu.Unlock()
		return ErrAlreadyNavigating
	}
	n.mu.Unlock()

	// Probe the locator before going active. Denial and unsupported
	// are never retried.
	if _, err := n.locator.Current(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)

	n.mu.Lock()
	if n.active {
		n.mu.Unlock()
		cancel()
		return ErrAlreadyNavigating
	}
	n.active = true
	n.generation++
	gen := n.generation
	n.destination = destination
	n.instruction = ""
	n.cancel = cancel
	n.mu.Unlock()

	go n.loop(loopCtx, gen, destination)

	log.Info("navigation started", "destination", destination)
	return nil
}

// Stop ends the loop. Idempotent; responses from ticks still in
// flight are dropped.
func (n *Navigator) Stop() {
	n.mu.Lock()
	if !n.active {
		n.mu.Unlock()
		return
	}
	n.active = false
	n.generation++ // invalidates in-flight responses
	cancel := n.cancel
	n.cancel = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	log.Info("navigation stopped")
}

// Active reports whether the loop is running.
func (n *Navigator) Active() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

// Instruction returns the current walking instruction.
func (n *Navigator) Instruction() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.instruction
}

// Destination returns the active destination, empty when stopped.
func (n *Navigator) Destination() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.active {
		return ""
	}
	return n.destination
}

// loop issues one advice tick immediately, then one per Interval.
func (n *Navigator) loop(ctx context.Context, gen uint64, destination string) {
	ticker := time.NewTicker(n.cfg.Interval)
	defer ticker.Stop()

	for {
		n.tick(ctx, gen, destination)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick runs one advice call. Failures are logged and dropped; the
// next tick proceeds regardless, with no retry or backoff.
func (n *Navigator) tick(ctx context.Context, gen uint64, destination string) {
	tickCtx, cancel := context.WithTimeout(ctx, n.cfg.TickTimeout)
	defer cancel()

	frame, err := n.frames.Frame()
	if err != nil {
		log.Debug("navigate: no frame for tick", "error", err)
		return
	}

	pos, err := n.locator.Current(tickCtx)
	if err != nil {
		log.Warn("navigate: location fix failed", "error", err)
		return
	}

	instruction, err := n.adviser.Advise(tickCtx, frame.JPEG, pos, destination)
	if err != nil {
		log.Warn("navigate: advice request failed", "error", err)
		return
	}

	// Liveness guard: if Stop (or a restart) happened while the
	// request was in flight, this response is stale and must not be
	// surfaced or spoken.
	n.mu.Lock()
	if !n.active || n.generation != gen {
		n.mu.Unlock()
		log.Debug("navigate: dropping stale response")
		return
	}
	n.instruction = instruction
	n.mu.Unlock()

	log.Info("navigation instruction", "text", instruction)

	if n.OnInstruction != nil {
		n.OnInstruction(instruction)
	}
	if n.speaker != nil {
		if err := n.speaker.Speak(ctx, instruction); err != nil {
			log.Warn("navigate: speak failed", "error", err)
		}
	}
}
