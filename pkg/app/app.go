package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/irislabs/go-iris/internal/log"
	"github.com/irislabs/go-iris/pkg/audioio"
	"github.com/irislabs/go-iris/pkg/camera"
	"github.com/irislabs/go-iris/pkg/detect"
	"github.com/irislabs/go-iris/pkg/hub"
	"github.com/irislabs/go-iris/pkg/journal"
	"github.com/irislabs/go-iris/pkg/live"
	"github.com/irislabs/go-iris/pkg/navigate"
	"github.com/irislabs/go-iris/pkg/playback"
	"github.com/irislabs/go-iris/pkg/snapshot"
	"github.com/irislabs/go-iris/pkg/speech"
)

// ErrNoMicrophone is returned when starting a live session before any
// microphone source has been attached.
var ErrNoMicrophone = errors.New("app: no microphone attached")

// ErrNoCamera is returned when an operation needs frames but no camera
// source has been attached.
var ErrNoCamera = errors.New("app: no camera attached")

// previewInterval is how often a preview frame goes out to clients.
const previewInterval = 100 * time.Millisecond

// liveSession is the slice of live.Session the app drives. A factory
// produces one per Start since sessions are single-use.
type liveSession interface {
	Start(ctx context.Context) error
	Stop() error
	State() live.State
	Transcript() string
}

// App is the service orchestrator. It owns the active mode, the media
// sources, and the three pipelines, and exposes the operations the web
// layer calls.
type App struct {
	cfg Config

	mu   sync.Mutex
	mode Mode

	// Media sources, attached at Init (webcam) or by the ingest layer
	// (browser WebRTC).
	mic audioio.Source
	cam camera.Source

	// Output path: scheduler -> hub sink -> browser.
	sink      *HubSink
	scheduler *playback.Scheduler
	speaker   *speech.Speaker

	// Pipelines.
	detector detect.Detector
	snap     *snapshot.Pipeline
	nav      *navigate.Navigator
	locator  *RelayLocator

	// startMu serializes StartLive so two concurrent starts cannot
	// both pass the single-session check.
	startMu    sync.Mutex
	session    liveSession
	newSession func() (liveSession, error)

	// Navigation transcript for the journal.
	navLog strings.Builder

	// Journal (optional).
	journal *journal.Store
	docs    *journal.GoogleDocsClient

	// Fan-out streams.
	StatusHub     *hub.Hub
	TranscriptHub *hub.Hub
	FrameHub      *hub.Hub
	AudioHub      *hub.Hub
}

// New creates the app. Call Init before Run.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &App{
		cfg:  cfg,
		mode: ModeHome,
	}, nil
}

// Init wires all components together.
func (a *App) Init(ctx context.Context) error {
	a.StatusHub = hub.New("status")
	a.TranscriptHub = hub.New("transcript")
	a.FrameHub = hub.New("frames")
	a.AudioHub = hub.New("audio")
	go a.StatusHub.Run()
	go a.TranscriptHub.Run()
	go a.FrameHub.Run()
	go a.AudioHub.Run()

	a.sink = NewHubSink(audioio.PlaybackConfig(), a.AudioHub)
	if err := a.sink.Start(ctx); err != nil {
		return fmt.Errorf("audio sink: %w", err)
	}
	a.scheduler = playback.NewScheduler(a.sink)

	synth, err := speech.NewOpenAI(
		speech.WithAPIKey(a.cfg.OpenAIKey),
		speech.WithVoice(a.cfg.Voice),
		speech.WithLogger(log.L()),
	)
	if err != nil {
		return fmt.Errorf("speech synthesizer: %w", err)
	}
	a.speaker = speech.NewSpeaker(synth, a.scheduler)

	if a.cfg.UseWebcam {
		cam, err := camera.NewWebcam(camera.DefaultConfig())
		if err != nil {
			return fmt.Errorf("webcam: %w", err)
		}
		if err := cam.Start(ctx); err != nil {
			return fmt.Errorf("webcam start: %w", err)
		}
		a.cam = cam
	}

	yoloCfg := detect.DefaultYOLOConfig()
	yoloCfg.ModelPath = a.cfg.ModelPath
	a.detector, err = detect.NewYOLO(yoloCfg)
	if err != nil {
		return fmt.Errorf("detector: %w", err)
	}

	a.locator = NewRelayLocator()

	adviser, err := navigate.NewGeminiAdviser(ctx, a.cfg.GoogleAPIKey)
	if err != nil {
		return fmt.Errorf("navigation adviser: %w", err)
	}
	a.nav, err = navigate.New(navigate.DefaultConfig(), cameraRef{a}, a.locator, adviser, a.speaker)
	if err != nil {
		return fmt.Errorf("navigator: %w", err)
	}
	a.nav.OnInstruction = func(text string) {
		a.mu.Lock()
		a.navLog.WriteString(text)
		a.navLog.WriteString("\n")
		a.mu.Unlock()
		a.TranscriptHub.BroadcastJSON(map[string]string{"type": "instruction", "text": text})
		a.broadcastStatus()
	}

	a.snap = snapshot.New(cameraRef{a}, a.detector, a.speaker)

	a.newSession = func() (liveSession, error) {
		a.mu.Lock()
		mic := a.mic
		a.mu.Unlock()
		if mic == nil {
			return nil, ErrNoMicrophone
		}
		liveCfg := live.DefaultConfig()
		liveCfg.APIKey = a.cfg.GoogleAPIKey
		sess, err := live.NewSession(liveCfg, mic, cameraRef{a}, a.scheduler)
		if err != nil {
			return nil, err
		}
		sess.OnState = func(s live.State) {
			a.broadcastStatus()
		}
		sess.OnTranscript = func(text string) {
			a.TranscriptHub.BroadcastJSON(map[string]string{"type": "transcript", "text": text})
		}
		sess.OnError = func(err error) {
			log.Error("live session failed", "error", err)
		}
		return sess, nil
	}

	if a.cfg.JournalEnabled {
		if a.cfg.JournalDir != "" {
			a.journal, err = journal.NewStore(filepath.Join(a.cfg.JournalDir, "journal.json"))
		} else {
			a.journal, err = journal.NewDefaultStore()
		}
		if err != nil {
			return fmt.Errorf("journal store: %w", err)
		}

		if a.cfg.GoogleClientID != "" && a.cfg.GoogleClientSecret != "" {
			a.docs, err = journal.NewGoogleDocsClient(journal.GoogleDocsConfig{
				ClientID:     a.cfg.GoogleClientID,
				ClientSecret: a.cfg.GoogleClientSecret,
				RedirectURL:  fmt.Sprintf("http://localhost:%s/api/journal/callback", a.cfg.Port),
			})
			if err != nil {
				return fmt.Errorf("google docs client: %w", err)
			}
		}
	}

	log.Info("app initialized", "port", a.cfg.Port, "journal", a.cfg.JournalEnabled)
	return nil
}

// Run streams preview frames until ctx is done, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(previewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return a.Shutdown()
		case <-ticker.C:
			a.broadcastPreview()
		}
	}
}

// broadcastPreview pushes the current camera frame to preview clients.
// While a snapshot result is held the frozen frame is shown instead of
// the live feed.
func (a *App) broadcastPreview() {
	if a.FrameHub.ClientCount() == 0 {
		return
	}
	if a.Mode() == ModeHome {
		return
	}

	if result := a.snap.Result(); result != nil {
		a.FrameHub.BroadcastBinary(result.Frame)
		return
	}

	a.mu.Lock()
	cam := a.cam
	a.mu.Unlock()
	if cam == nil {
		return
	}
	frame, err := cam.Frame()
	if err != nil {
		return
	}
	a.FrameHub.BroadcastBinary(frame.JPEG)
}

// AttachMedia sets the microphone and camera sources. Called by the
// ingest layer once the browser's WebRTC tracks are up, or by Init in
// webcam mode.
func (a *App) AttachMedia(mic audioio.Source, cam camera.Source) {
	a.mu.Lock()
	if mic != nil {
		a.mic = mic
	}
	if cam != nil {
		a.cam = cam
	}
	a.mu.Unlock()
	log.Info("media attached", "mic", mic != nil, "camera", cam != nil)
}

// Mode returns the active mode.
func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// SetMode switches the active mode, tearing the previous one down
// first. Switching to the current mode is a no-op.
func (a *App) SetMode(ctx context.Context, mode Mode) error {
	a.mu.Lock()
	prev := a.mode
	a.mu.Unlock()

	if prev == mode {
		return nil
	}

	// Teardown of the outgoing mode.
	switch prev {
	case ModeFast:
		a.snap.Reset()
	case ModeScene:
		a.StopLive()
	case ModeMaps:
		a.StopNavigation()
	}

	a.mu.Lock()
	a.mode = mode
	a.mu.Unlock()

	log.Info("mode switched", "from", prev.String(), "to", mode.String())
	a.broadcastStatus()
	return nil
}

// TriggerSnapshot runs one detection in Fast mode.
func (a *App) TriggerSnapshot(ctx context.Context) (*snapshot.Result, error) {
	a.mu.Lock()
	cam := a.cam
	a.mu.Unlock()
	if cam == nil {
		return nil, ErrNoCamera
	}

	result, err := a.snap.Trigger(ctx)
	if err != nil {
		return nil, err
	}
	a.broadcastStatus()
	return result, nil
}

// ResetSnapshot clears the held detection so the preview resumes.
func (a *App) ResetSnapshot() {
	a.snap.Reset()
	a.broadcastStatus()
}

// SnapshotResult returns the most recent detection, or nil.
func (a *App) SnapshotResult() *snapshot.Result {
	return a.snap.Result()
}

// StartLive begins a scene-description session. Each call creates a
// fresh session; a session already connecting or active makes this
// return live.ErrAlreadyStarted.
func (a *App) StartLive(ctx context.Context) error {
	a.startMu.Lock()
	defer a.startMu.Unlock()

	a.mu.Lock()
	current := a.session
	a.mu.Unlock()

	if current != nil && !current.State().Terminal() {
		return live.ErrAlreadyStarted
	}

	sess, err := a.newSession()
	if err != nil {
		return err
	}

	if err := sess.Start(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()

	a.broadcastStatus()
	return nil
}

// StopLive ends the scene session if one is running and journals its
// transcript. Safe to call when nothing is running.
func (a *App) StopLive() {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()
	if sess == nil {
		return
	}

	transcript := sess.Transcript()
	sess.Stop()

	if a.journal != nil && strings.TrimSpace(transcript) != "" {
		entry := &journal.Entry{
			Kind:       journal.KindScene,
			Transcript: transcript,
		}
		if err := a.journal.Append(entry); err != nil {
			log.Warn("journal: failed to save scene entry", "error", err)
		}
	}

	a.broadcastStatus()
}

// LiveState returns the current session state, or StateIdle when no
// session has been started.
func (a *App) LiveState() live.State {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()
	if sess == nil {
		return live.StateIdle
	}
	return sess.State()
}

// Transcript returns the running transcript of the current session.
func (a *App) Transcript() string {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()
	if sess == nil {
		return ""
	}
	return sess.Transcript()
}

// StartNavigation begins the guided walk toward destination.
func (a *App) StartNavigation(ctx context.Context, destination string) error {
	a.mu.Lock()
	cam := a.cam
	a.navLog.Reset()
	a.mu.Unlock()
	if cam == nil {
		return ErrNoCamera
	}

	if err := a.nav.Start(ctx, destination); err != nil {
		return err
	}
	a.broadcastStatus()
	return nil
}

// StopNavigation ends the walk and journals the spoken instructions.
func (a *App) StopNavigation() {
	destination := a.nav.Destination()
	active := a.nav.Active()
	a.nav.Stop()

	if active && a.journal != nil {
		a.mu.Lock()
		transcript := a.navLog.String()
		a.mu.Unlock()

		entry := &journal.Entry{
			Kind:        journal.KindNavigation,
			Destination: destination,
			Transcript:  transcript,
		}
		if pos, err := a.locator.Current(context.Background()); err == nil {
			entry.Position = &pos
		}
		if err := a.journal.Append(entry); err != nil {
			log.Warn("journal: failed to save navigation entry", "error", err)
		}
	}

	a.broadcastStatus()
}

// Navigating reports whether the guidance loop is running.
func (a *App) Navigating() bool {
	return a.nav.Active()
}

// Instruction returns the current walking instruction.
func (a *App) Instruction() string {
	return a.nav.Instruction()
}

// Locator returns the relay locator the web layer feeds position fixes
// into.
func (a *App) Locator() *RelayLocator {
	return a.locator
}

// Journal returns the entry store, nil when journaling is disabled.
func (a *App) Journal() *journal.Store {
	return a.journal
}

// Docs returns the Google Docs sync client, nil when not configured.
func (a *App) Docs() *journal.GoogleDocsClient {
	return a.docs
}

// SyncJournalEntry syncs one entry to Google Docs and persists the
// updated sync state.
func (a *App) SyncJournalEntry(id string) (*journal.Entry, error) {
	if a.journal == nil {
		return nil, errors.New("app: journal disabled")
	}
	if a.docs == nil {
		return nil, errors.New("app: google docs not configured")
	}

	entry, err := a.journal.Get(id)
	if err != nil {
		return nil, err
	}

	syncErr := a.docs.SyncEntry(entry)
	// SyncEntry marks the entry either way; persist the outcome.
	if err := a.journal.Update(entry); err != nil {
		log.Warn("journal: failed to persist sync state", "error", err)
	}
	if syncErr != nil {
		return entry, syncErr
	}
	return entry, nil
}

// Status is a snapshot of service state for clients.
type Status struct {
	Mode         string `json:"mode"`
	LiveState    string `json:"live_state"`
	Navigating   bool   `json:"navigating"`
	Destination  string `json:"destination,omitempty"`
	Instruction  string `json:"instruction,omitempty"`
	SnapshotBusy bool   `json:"snapshot_busy"`
	SnapshotHeld bool   `json:"snapshot_held"`
}

// Status returns the current service status.
func (a *App) Status() Status {
	return Status{
		Mode:         a.Mode().String(),
		LiveState:    a.LiveState().String(),
		Navigating:   a.nav.Active(),
		Destination:  a.nav.Destination(),
		Instruction:  a.nav.Instruction(),
		SnapshotBusy: a.snap.Busy(),
		SnapshotHeld: a.snap.Result() != nil,
	}
}

// broadcastStatus pushes the current status to all status clients.
func (a *App) broadcastStatus() {
	if a.StatusHub != nil {
		a.StatusHub.BroadcastJSON(a.Status())
	}
}

// Shutdown tears everything down. Safe to call once.
func (a *App) Shutdown() error {
	log.Info("app shutting down")

	a.StopLive()
	a.StopNavigation()

	if a.scheduler != nil {
		a.scheduler.Close()
	}
	if a.sink != nil {
		a.sink.Close()
	}

	a.mu.Lock()
	cam := a.cam
	mic := a.mic
	a.mu.Unlock()
	if cam != nil {
		cam.Close()
	}
	if mic != nil {
		mic.Close()
	}
	if a.detector != nil {
		a.detector.Close()
	}

	return nil
}

// cameraRef hands the app's current camera to the pipelines without
// pinning the source that was attached at wiring time. Browser ingest
// can attach a camera after the pipelines are built.
type cameraRef struct {
	app *App
}

func (c cameraRef) Start(ctx context.Context) error {
	return nil
}

func (c cameraRef) Stop() error {
	return nil
}

func (c cameraRef) Frame() (camera.Frame, error) {
	c.app.mu.Lock()
	cam := c.app.cam
	c.app.mu.Unlock()
	if cam == nil {
		return camera.Frame{}, camera.ErrNoFrame
	}
	return cam.Frame()
}

func (c cameraRef) Name() string {
	return "app"
}

func (c cameraRef) Close() error {
	return nil
}

var _ camera.Source = cameraRef{}
