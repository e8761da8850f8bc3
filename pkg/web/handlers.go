package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/irislabs/go-iris/pkg/app"
	"github.com/irislabs/go-iris/pkg/journal"
	"github.com/irislabs/go-iris/pkg/live"
	"github.com/irislabs/go-iris/pkg/navigate"
	"github.com/irislabs/go-iris/pkg/snapshot"
)

// handleStatus returns the current service status.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.app.Status())
}

// handleSetMode switches the active mode.
func (s *Server) handleSetMode(c *fiber.Ctx) error {
	mode, err := app.ParseMode(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.app.SetMode(c.Context(), mode); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.app.Status())
}

// handleSnapshotTrigger runs one detection.
func (s *Server) handleSnapshotTrigger(c *fiber.Ctx) error {
	result, err := s.app.TriggerSnapshot(c.Context())
	switch {
	case errors.Is(err, snapshot.ErrBusy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "detection already in flight"})
	case errors.Is(err, app.ErrNoCamera):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

// handleSnapshotReset clears the held detection.
func (s *Server) handleSnapshotReset(c *fiber.Ctx) error {
	s.app.ResetSnapshot()
	return c.JSON(fiber.Map{"ok": true})
}

// handleSnapshotResult returns the most recent detection.
func (s *Server) handleSnapshotResult(c *fiber.Ctx) error {
	result := s.app.SnapshotResult()
	if result == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no detection held"})
	}
	return c.JSON(result)
}

// handleLiveStart begins a scene-description session.
func (s *Server) handleLiveStart(c *fiber.Ctx) error {
	err := s.app.StartLive(c.Context())
	switch {
	case errors.Is(err, live.ErrAlreadyStarted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "session already running"})
	case errors.Is(err, app.ErrNoMicrophone):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"state": s.app.LiveState().String()})
}

// handleLiveStop ends the scene session.
func (s *Server) handleLiveStop(c *fiber.Ctx) error {
	s.app.StopLive()
	return c.JSON(fiber.Map{"state": s.app.LiveState().String()})
}

// handleTranscript returns the running transcript.
func (s *Server) handleTranscript(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"transcript": s.app.Transcript()})
}

// NavigateRequest is the body for starting navigation.
type NavigateRequest struct {
	Destination string `json:"destination"`
}

// handleNavigateStart begins the guided walk.
func (s *Server) handleNavigateStart(c *fiber.Ctx) error {
	var req NavigateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	err := s.app.StartNavigation(c.Context(), req.Destination)
	switch {
	case errors.Is(err, navigate.ErrNoDestination):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "destination required"})
	case errors.Is(err, navigate.ErrAlreadyNavigating):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already navigating"})
	case errors.Is(err, navigate.ErrPermissionDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "location permission denied"})
	case errors.Is(err, navigate.ErrUnsupported):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "geolocation not supported"})
	case errors.Is(err, app.ErrNoLocationFix):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "waiting for location fix"})
	case errors.Is(err, app.ErrNoCamera):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.app.Status())
}

// handleNavigateStop ends the walk.
func (s *Server) handleNavigateStop(c *fiber.Ctx) error {
	s.app.StopNavigation()
	return c.JSON(s.app.Status())
}

// handleLocation records a position fix relayed by the browser.
func (s *Server) handleLocation(c *fiber.Ctx) error {
	var pos navigate.Position
	if err := c.BodyParser(&pos); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid position"})
	}
	s.app.Locator().Update(pos)
	return c.JSON(fiber.Map{"ok": true})
}

// handleLocationDenied records that the user denied location access.
func (s *Server) handleLocationDenied(c *fiber.Ctx) error {
	s.app.Locator().SetDenied()
	return c.JSON(fiber.Map{"ok": true})
}

// handleLocationUnsupported records that the device has no geolocation.
func (s *Server) handleLocationUnsupported(c *fiber.Ctx) error {
	s.app.Locator().SetUnsupported()
	return c.JSON(fiber.Map{"ok": true})
}

// journalStore returns the store or writes a 503.
func (s *Server) journalStore(c *fiber.Ctx) (*journal.Store, error) {
	store := s.app.Journal()
	if store == nil {
		return nil, c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "journal disabled"})
	}
	return store, nil
}

// handleJournalList returns all entries, newest first.
func (s *Server) handleJournalList(c *fiber.Ctx) error {
	store, err := s.journalStore(c)
	if store == nil {
		return err
	}
	return c.JSON(store.List())
}

// handleJournalGet returns one entry.
func (s *Server) handleJournalGet(c *fiber.Ctx) error {
	store, err := s.journalStore(c)
	if store == nil {
		return err
	}
	entry, err := store.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "entry not found"})
	}
	return c.JSON(entry)
}

// handleJournalDelete removes one entry.
func (s *Server) handleJournalDelete(c *fiber.Ctx) error {
	store, err := s.journalStore(c)
	if store == nil {
		return err
	}
	if err := store.Delete(c.Params("id")); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "entry not found"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// handleJournalSync pushes one entry to Google Docs.
func (s *Server) handleJournalSync(c *fiber.Ctx) error {
	if s.app.Journal() == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "journal disabled"})
	}
	if s.app.Docs() == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "google docs not configured"})
	}

	entry, err := s.app.SyncJournalEntry(c.Params("id"))
	if err != nil {
		status := fiber.StatusInternalServerError
		if entry == nil {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"entry": entry,
		"url":   journal.DocURL(entry.GoogleDocID),
	})
}

// handleGoogleStatus returns the Google Docs connection status.
func (s *Server) handleGoogleStatus(c *fiber.Ctx) error {
	docs := s.app.Docs()
	if docs == nil {
		return c.JSON(journal.Status{Connected: false})
	}
	return c.JSON(docs.GetStatus())
}

// handleGoogleAuth redirects to the Google consent page.
func (s *Server) handleGoogleAuth(c *fiber.Ctx) error {
	docs := s.app.Docs()
	if docs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "google docs not configured"})
	}
	return c.Redirect(docs.AuthURL(), fiber.StatusTemporaryRedirect)
}

// handleGoogleCallback processes the OAuth callback.
func (s *Server) handleGoogleCallback(c *fiber.Ctx) error {
	docs := s.app.Docs()
	if docs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "google docs not configured"})
	}
	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing authorization code"})
	}
	if err := docs.HandleCallback(code); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set("Content-Type", "text/html")
	return c.SendString(`<!DOCTYPE html>
<html>
<head><title>Iris - Connected</title></head>
<body>
  <p>Google Docs connected. Your journal will now sync.</p>
  <p><small>You can close this window.</small></p>
  <script>setTimeout(function() { window.close(); }, 3000);</script>
</body>
</html>`)
}

// handleGoogleDisconnect clears the Google Docs connection.
func (s *Server) handleGoogleDisconnect(c *fiber.Ctx) error {
	docs := s.app.Docs()
	if docs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "google docs not configured"})
	}
	if err := docs.Disconnect(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// OfferRequest is the body for WebRTC signalling.
type OfferRequest struct {
	SDP string `json:"sdp"`
}

// handleOffer answers a browser WebRTC offer so media ingest can start.
func (s *Server) handleOffer(c *fiber.Ctx) error {
	if s.OnOffer == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "media ingest disabled"})
	}

	var req OfferRequest
	if err := c.BodyParser(&req); err != nil || req.SDP == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid offer"})
	}

	answer, err := s.OnOffer(req.SDP)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"sdp": answer})
}
