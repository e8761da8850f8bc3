// Package playback schedules ordered, gapless audio playback.
//
// Audio chunks arrive from the live endpoint faster than real time, so
// they cannot simply be written to the output as they arrive. The
// Scheduler assigns each chunk a start time of
//
//	max(previous chunk's scheduled end, now)
//
// which keeps chunks in arrival order, back to back, and never
// overlapping. Interrupt discards everything queued and resets the
// schedule so the next chunk plays immediately. This is what makes
// barge-in feel instant: the model's stale audio is dropped rather
// than played out.
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/irislabs/go-iris/internal/log"
	"github.com/irislabs/go-iris/pkg/audioio"
)

// ErrClosed is returned when enqueueing to a closed scheduler.
var ErrClosed = errors.New("playback: scheduler closed")

// DefaultQueueSize is the number of chunks that can be queued before
// Enqueue blocks.
const DefaultQueueSize = 64

// Clock abstracts time for the scheduler so tests can run without
// real-time waits.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks until d has elapsed or ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type item struct {
	chunk audioio.Chunk
	start time.Time
	epoch uint64
}

// Scheduler plays audio chunks through a sink in order without gaps.
type Scheduler struct {
	sink  audioio.Sink
	clock Clock

	mu      sync.Mutex
	nextEnd time.Time // scheduled end of the last enqueued chunk
	epoch   uint64    // bumped on Interrupt to invalidate queued items
	closed  bool

	queue  chan item
	stopCh chan struct{}
	doneCh chan struct{}

	// Stats
	scheduled  int64
	interrupts int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the real clock, for tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Scheduler) { s.queue = make(chan item, n) }
}

// NewScheduler creates a scheduler writing to sink and starts its
// playout loop. The caller owns the sink's lifecycle; the scheduler
// only writes to and clears it.
func NewScheduler(sink audioio.Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		sink:   sink,
		clock:  realClock{},
		queue:  make(chan item, DefaultQueueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.playoutLoop()
	return s
}

// Enqueue schedules a chunk for playback and returns its start time.
//
// The start time is the later of the previous chunk's scheduled end
// and the current clock, so chunks never overlap and never play out
// of order, and a chunk arriving after a silence gap starts
// immediately rather than in the past.
func (s *Scheduler) Enqueue(ctx context.Context, chunk audioio.Chunk) (time.Time, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return time.Time{}, ErrClosed
	}

	now := s.clock.Now()
	start := s.nextEnd
	if now.After(start) {
		start = now
	}
	s.nextEnd = start.Add(chunk.Duration())
	epoch := s.epoch
	s.scheduled++
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case <-s.stopCh:
		return time.Time{}, ErrClosed
	case s.queue <- item{chunk: chunk, start: start, epoch: epoch}:
		return start, nil
	}
}

// Interrupt discards all queued audio and resets the schedule.
// The next enqueued chunk starts immediately. Already-playing audio in
// the sink's buffer is cleared as well.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.epoch++
	s.nextEnd = time.Time{}
	s.interrupts++
	s.mu.Unlock()

	// Drain anything already queued. The epoch bump makes the playout
	// loop drop in-flight items too.
	for {
		select {
		case <-s.queue:
		default:
			if err := s.sink.Clear(); err != nil {
				log.Warn("playback: sink clear failed", "error", err)
			}
			log.Debug("playback interrupted")
			return
		}
	}
}

// Pending returns the number of chunks waiting in the queue.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// Stats returns cumulative scheduler counters.
func (s *Scheduler) Stats() (scheduled, interrupts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled, s.interrupts
}

// Close stops the playout loop. Queued audio is discarded.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
	return nil
}

func (s *Scheduler) playoutLoop() {
	defer close(s.doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-s.stopCh
		cancel()
	}()

	for {
		select {
		case <-s.stopCh:
			return
		case it := <-s.queue:
			s.mu.Lock()
			stale := it.epoch != s.epoch
			s.mu.Unlock()
			if stale {
				continue
			}

			if err := s.clock.Sleep(ctx, it.start.Sub(s.clock.Now())); err != nil {
				return
			}

			// Re-check after the wait: an Interrupt may have landed
			// while this chunk was pending.
			s.mu.Lock()
			stale = it.epoch != s.epoch
			s.mu.Unlock()
			if stale {
				continue
			}

			if err := s.sink.Write(ctx, it.chunk); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("playback: sink write failed", "error", err)
			}
		}
	}
}
