// Iris - assistive vision service.
//
// Serves the three modes (snapshot detection, live scene description,
// guided walking) to a browser client over HTTP, websockets, and
// WebRTC.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/irislabs/go-iris/internal/config"
	"github.com/irislabs/go-iris/internal/log"
	"github.com/irislabs/go-iris/pkg/app"
	"github.com/irislabs/go-iris/pkg/ingest"
	"github.com/irislabs/go-iris/pkg/web"
)

func main() {
	cfg := parseFlags()

	level := config.LogLevel()
	if cfg.Debug {
		level = "debug"
	}
	log.Init(level)

	a, err := app.New(cfg)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(cfg.Port, a, web.Hubs{
		Status:     a.StatusHub,
		Transcript: a.TranscriptHub,
		Frames:     a.FrameHub,
		Audio:      a.AudioHub,
	})

	// Browser media comes in over WebRTC unless a local webcam was
	// requested.
	if !cfg.UseWebcam {
		in := ingest.New(ingest.DefaultConfig())
		defer in.Close()
		a.AttachMedia(in.Mic(), in.Frames())
		server.OnOffer = in.HandleOffer
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Error("web server failed", "error", err)
			cancel()
		}
	}()
	defer server.Shutdown()

	if err := a.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() app.Config {
	cfg := app.DefaultConfig()

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	port := flag.String("port", cfg.Port, "Web server listen port")
	modelPath := flag.String("model", cfg.ModelPath, "YOLO ONNX model path")
	voice := flag.String("voice", cfg.Voice, "TTS voice for spoken summaries")
	useWebcam := flag.Bool("webcam", false, "Capture from a local webcam instead of browser WebRTC")
	journalEnabled := flag.Bool("journal", cfg.JournalEnabled, "Enable the scene journal")
	journalDir := flag.String("journal-dir", "", "Journal storage directory (default ~/.iris)")
	flag.Parse()

	cfg.Debug = *debug
	cfg.Port = *port
	cfg.ModelPath = *modelPath
	cfg.Voice = *voice
	cfg.UseWebcam = *useWebcam
	cfg.JournalEnabled = *journalEnabled
	cfg.JournalDir = *journalDir

	cfg.LoadEnvConfig()
	return cfg
}
