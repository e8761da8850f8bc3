// Snapshot - command line object detection.
//
// Captures frames from a local webcam, runs the YOLO detector, and
// prints what it finds. Useful for checking a model file and camera
// setup without running the full service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irislabs/go-iris/internal/log"
	"github.com/irislabs/go-iris/pkg/camera"
	"github.com/irislabs/go-iris/pkg/detect"
)

func main() {
	modelPath := flag.String("model", "models/yolov8n.onnx", "YOLO ONNX model path")
	deviceID := flag.Int("device", 0, "Webcam device ID")
	once := flag.Bool("once", false, "Detect a single frame and exit")
	interval := flag.Duration("interval", 2*time.Second, "Delay between detections")
	flag.Parse()

	log.Init("warn")

	yoloCfg := detect.DefaultYOLOConfig()
	yoloCfg.ModelPath = *modelPath
	detector, err := detect.NewYOLO(yoloCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "detector: %v\n", err)
		os.Exit(1)
	}
	defer detector.Close()

	camCfg := camera.DefaultConfig()
	camCfg.DeviceID = *deviceID
	cam, err := camera.NewWebcam(camCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "webcam: %v\n", err)
		os.Exit(1)
	}
	defer cam.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cam.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "webcam start: %v\n", err)
		os.Exit(1)
	}

	// Give the capture loop a moment to produce the first frame.
	time.Sleep(500 * time.Millisecond)

	for {
		if err := detectOnce(cam, detector); err != nil {
			fmt.Fprintf(os.Stderr, "detect: %v\n", err)
		}

		if *once {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(*interval):
		}
	}
}

// detectOnce runs one detection and prints the result.
func detectOnce(cam camera.Source, detector detect.Detector) error {
	frame, err := cam.Frame()
	if err != nil {
		return err
	}

	start := time.Now()
	boxes, err := detector.Detect(frame.JPEG)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%d objects, %dms)\n",
		detect.Summarize(detect.Labels(boxes)), len(boxes), time.Since(start).Milliseconds())
	for _, box := range boxes {
		fmt.Printf("  %-12s %.0f%%  at (%.2f, %.2f) size %.2fx%.2f\n",
			box.Label, box.Confidence*100, box.X, box.Y, box.W, box.H)
	}
	return nil
}
