package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/irislabs/go-iris/internal/log"
)

// Webcam captures frames from a local V4L2/AVFoundation device via gocv.
// Useful for development on a laptop; production deployments use the
// WebRTC ingest instead.
type Webcam struct {
	cfg Config

	mu      sync.Mutex
	capture *gocv.VideoCapture
	running bool
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	frameMu sync.RWMutex
	frame   Frame
}

// NewWebcam creates a webcam source. The device is not opened until Start.
func NewWebcam(cfg Config) (*Webcam, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Webcam{cfg: cfg}, nil
}

// Start opens the capture device and begins the capture loop.
func (w *Webcam) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("webcam: source closed")
	}
	if w.running {
		return nil
	}

	capture, err := gocv.VideoCaptureDevice(w.cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("webcam: failed to open device %d: %w", w.cfg.DeviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(w.cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(w.cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(w.cfg.Framerate))

	w.capture = capture
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go w.captureLoop(ctx, w.stopCh, w.doneCh)

	log.Info("webcam started",
		"device", w.cfg.DeviceID,
		"resolution", fmt.Sprintf("%dx%d", w.cfg.Width, w.cfg.Height),
		"framerate", w.cfg.Framerate,
	)

	return nil
}

func (w *Webcam) captureLoop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	img := gocv.NewMat()
	defer img.Close()

	ticker := time.NewTicker(w.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			w.mu.Lock()
			capture := w.capture
			w.mu.Unlock()
			if capture == nil {
				return
			}

			if ok := capture.Read(&img); !ok || img.Empty() {
				continue
			}

			buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img,
				[]int{gocv.IMWriteJpegQuality, w.cfg.Quality})
			if err != nil {
				log.Warn("webcam: jpeg encode failed", "error", err)
				continue
			}

			frame := Frame{
				JPEG:      append([]byte(nil), buf.GetBytes()...),
				Width:     img.Cols(),
				Height:    img.Rows(),
				Timestamp: time.Now(),
			}
			buf.Close()

			w.frameMu.Lock()
			w.frame = frame
			w.frameMu.Unlock()
		}
	}
}

// Stop halts capture and releases the device. It waits for the
// capture loop to exit so the device is never closed mid-read.
func (w *Webcam) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done

	w.mu.Lock()
	if w.capture != nil {
		w.capture.Close()
		w.capture = nil
	}
	w.mu.Unlock()

	return nil
}

// Frame returns the most recently captured frame.
func (w *Webcam) Frame() (Frame, error) {
	w.frameMu.RLock()
	defer w.frameMu.RUnlock()

	if len(w.frame.JPEG) == 0 {
		return Frame{}, ErrNoFrame
	}
	return w.frame, nil
}

// Name returns "webcam".
func (w *Webcam) Name() string {
	return "webcam"
}

// Close stops capture and marks the source unusable.
func (w *Webcam) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	return w.Stop()
}

var _ Source = (*Webcam)(nil)
