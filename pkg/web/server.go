// Package web exposes the service over HTTP and websockets: a JSON
// API for mode switching and the three pipelines, plus fan-out streams
// for status, transcript fragments, preview frames, and playback
// audio.
package web

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/irislabs/go-iris/internal/log"
	"github.com/irislabs/go-iris/pkg/app"
	"github.com/irislabs/go-iris/pkg/hub"
	"github.com/irislabs/go-iris/pkg/journal"
	"github.com/irislabs/go-iris/pkg/live"
	"github.com/irislabs/go-iris/pkg/snapshot"
)

// Service is what the handlers need from the orchestrator. Satisfied
// by *app.App; tests use a fake.
type Service interface {
	Status() app.Status
	SetMode(ctx context.Context, mode app.Mode) error

	TriggerSnapshot(ctx context.Context) (*snapshot.Result, error)
	ResetSnapshot()
	SnapshotResult() *snapshot.Result

	StartLive(ctx context.Context) error
	StopLive()
	LiveState() live.State
	Transcript() string

	StartNavigation(ctx context.Context, destination string) error
	StopNavigation()

	Locator() *app.RelayLocator
	Journal() *journal.Store
	Docs() *journal.GoogleDocsClient
	SyncJournalEntry(id string) (*journal.Entry, error)
}

// Hubs are the fan-out streams the websocket endpoints attach to.
type Hubs struct {
	Status     *hub.Hub
	Transcript *hub.Hub
	Frames     *hub.Hub
	Audio      *hub.Hub
}

// Server is the HTTP and websocket front end.
type Server struct {
	fiber *fiber.App
	port  string
	app   Service
	hubs  Hubs

	// OnOffer answers a WebRTC offer from the browser. Wired by the
	// ingest layer; nil means ingest is disabled.
	OnOffer func(offerSDP string) (answerSDP string, err error)
}

// NewServer creates the server over the given service.
func NewServer(port string, svc Service, hubs Hubs) *Server {
	s := &Server{
		port: port,
		app:  svc,
		hubs: hubs,
	}

	f := fiber.New(fiber.Config{
		AppName:               "Iris",
		DisableStartupMessage: true,
	})

	// CORS for local development
	f.Use(cors.New())

	// Static files
	f.Static("/", "./web")

	api := f.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/mode/:name", s.handleSetMode)

	api.Post("/snapshot", s.handleSnapshotTrigger)
	api.Post("/snapshot/reset", s.handleSnapshotReset)
	api.Get("/snapshot", s.handleSnapshotResult)

	api.Post("/live/start", s.handleLiveStart)
	api.Post("/live/stop", s.handleLiveStop)
	api.Get("/live/transcript", s.handleTranscript)

	api.Post("/navigate/start", s.handleNavigateStart)
	api.Post("/navigate/stop", s.handleNavigateStop)

	api.Post("/location", s.handleLocation)
	api.Post("/location/denied", s.handleLocationDenied)
	api.Post("/location/unsupported", s.handleLocationUnsupported)

	api.Get("/journal", s.handleJournalList)
	api.Get("/journal/google/status", s.handleGoogleStatus)
	api.Get("/journal/auth", s.handleGoogleAuth)
	api.Get("/journal/callback", s.handleGoogleCallback)
	api.Post("/journal/google/disconnect", s.handleGoogleDisconnect)
	api.Get("/journal/:id", s.handleJournalGet)
	api.Delete("/journal/:id", s.handleJournalDelete)
	api.Post("/journal/:id/sync", s.handleJournalSync)

	api.Post("/webrtc/offer", s.handleOffer)

	// WebSocket upgrade middleware
	f.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	f.Get("/ws/status", websocket.New(s.handleStatusWS))
	f.Get("/ws/transcript", websocket.New(s.wsHandler(hubs.Transcript)))
	f.Get("/ws/frames", websocket.New(s.wsHandler(hubs.Frames)))
	f.Get("/ws/audio", websocket.New(s.wsHandler(hubs.Audio)))

	s.fiber = f
	return s
}

// Start listens on the configured port. Blocks.
func (s *Server) Start() error {
	log.Info("web server listening", "port", s.port)
	return s.fiber.Listen(":" + s.port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.fiber.Shutdown()
}

// wsHandler attaches a websocket connection to a hub stream.
func (s *Server) wsHandler(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		client := hub.NewClient(h, c)
		client.Run() // blocks until the connection closes
	}
}

// handleStatusWS sends the current status immediately, then streams
// updates.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	c.WriteJSON(s.app.Status())
	client := hub.NewClient(s.hubs.Status, c)
	client.Run()
}
