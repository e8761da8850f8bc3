// Package snapshot implements the one-shot detection pipeline.
//
// A trigger freezes the current camera frame, runs the object
// detector, keeps the normalized boxes for the client overlay, and
// speaks a summary of what was found. Only one detection runs at a
// time; triggers arriving while one is in flight are ignored rather
// than queued.
package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/irislabs/go-iris/internal/log"
	"github.com/irislabs/go-iris/pkg/camera"
	"github.com/irislabs/go-iris/pkg/detect"
)

// ErrBusy is returned when a trigger arrives while a detection is
// already running.
var ErrBusy = errors.New("snapshot: detection in flight")

// Speaker speaks a short message to the user.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Result is the outcome of one completed detection.
type Result struct {
	// Frame is the frozen JPEG the detection ran on.
	Frame []byte `json:"-"`

	// Boxes are the detected objects, coordinates normalized 0-1.
	Boxes []detect.Box `json:"boxes"`

	// Summary is the spoken sentence.
	Summary string `json:"summary"`

	// Taken is when the frame was frozen.
	Taken time.Time `json:"taken"`
}

// Pipeline runs detections against a camera source.
type Pipeline struct {
	camera   camera.Source
	detector detect.Detector
	speaker  Speaker

	mu       sync.Mutex
	inFlight bool
	result   *Result
}

// New creates a snapshot pipeline. speaker may be nil, in which case
// summaries are only returned, not spoken.
func New(cam camera.Source, detector detect.Detector, speaker Speaker) *Pipeline {
	return &Pipeline{
		camera:   cam,
		detector: detector,
		speaker:  speaker,
	}
}

// Trigger freezes a frame, runs detection, and speaks the summary.
//
// Returns ErrBusy if a detection is already in flight: concurrent
// triggers are dropped, not queued. Per-trigger failures are returned
// to the caller and logged; they never take the pipeline down.
func (p *Pipeline) Trigger(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		log.Debug("snapshot: trigger ignored, detection in flight")
		return nil, ErrBusy
	}
	p.inFlight = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	frame, err := p.camera.Frame()
	if err != nil {
		log.Warn("snapshot: frame capture failed", "error", err)
		return nil, err
	}

	boxes, err := p.detector.Detect(frame.JPEG)
	if err != nil {
		log.Warn("snapshot: detection failed", "error", err)
		return nil, err
	}

	summary := detect.Summarize(detect.Labels(boxes))
	result := &Result{
		Frame:   frame.JPEG,
		Boxes:   boxes,
		Summary: summary,
		Taken:   frame.Timestamp,
	}

	p.mu.Lock()
	p.result = result
	p.mu.Unlock()

	log.Info("snapshot complete", "objects", len(boxes))

	if p.speaker != nil {
		if err := p.speaker.Speak(ctx, summary); err != nil {
			// The detection itself succeeded; a failed announcement is
			// a one-off problem, not a pipeline failure.
			log.Warn("snapshot: speak failed", "error", err)
		}
	}

	return result, nil
}

// Result returns the most recent completed detection, or nil.
func (p *Pipeline) Result() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Busy reports whether a detection is currently running.
func (p *Pipeline) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Reset discards the held result so the client overlay clears and the
// camera preview resumes.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.result = nil
	p.mu.Unlock()
	log.Debug("snapshot reset")
}
