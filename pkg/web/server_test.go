package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/irislabs/go-iris/pkg/app"
	"github.com/irislabs/go-iris/pkg/detect"
	"github.com/irislabs/go-iris/pkg/hub"
	"github.com/irislabs/go-iris/pkg/journal"
	"github.com/irislabs/go-iris/pkg/live"
	"github.com/irislabs/go-iris/pkg/navigate"
	"github.com/irislabs/go-iris/pkg/snapshot"
)

// fakeService is a controllable Service for handler tests.
type fakeService struct {
	mode      app.Mode
	liveState live.State

	snapResult *snapshot.Result
	snapErr    error
	liveErr    error
	navErr     error

	locator *app.RelayLocator
	store   *journal.Store

	navDestination string
	stopNavCalls   int
	stopLiveCalls  int
	resetCalls     int
}

func (f *fakeService) Status() app.Status {
	return app.Status{Mode: f.mode.String(), LiveState: f.liveState.String()}
}

func (f *fakeService) SetMode(ctx context.Context, mode app.Mode) error {
	f.mode = mode
	return nil
}

func (f *fakeService) TriggerSnapshot(ctx context.Context) (*snapshot.Result, error) {
	return f.snapResult, f.snapErr
}

func (f *fakeService) ResetSnapshot() { f.resetCalls++ }

func (f *fakeService) SnapshotResult() *snapshot.Result { return f.snapResult }

func (f *fakeService) StartLive(ctx context.Context) error {
	if f.liveErr != nil {
		return f.liveErr
	}
	f.liveState = live.StateConnecting
	return nil
}

func (f *fakeService) StopLive() { f.stopLiveCalls++ }

func (f *fakeService) LiveState() live.State { return f.liveState }

func (f *fakeService) Transcript() string { return "There is a door ahead." }

func (f *fakeService) StartNavigation(ctx context.Context, destination string) error {
	if destination == "" {
		return navigate.ErrNoDestination
	}
	if f.navErr != nil {
		return f.navErr
	}
	f.navDestination = destination
	return nil
}

func (f *fakeService) StopNavigation() { f.stopNavCalls++ }

func (f *fakeService) Locator() *app.RelayLocator { return f.locator }

func (f *fakeService) Journal() *journal.Store { return f.store }

func (f *fakeService) Docs() *journal.GoogleDocsClient { return nil }

func (f *fakeService) SyncJournalEntry(id string) (*journal.Entry, error) {
	return nil, errors.New("google docs not configured")
}

func testServer(t *testing.T) (*Server, *fakeService) {
	t.Helper()

	store, err := journal.NewStore(t.TempDir() + "/journal.json")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	svc := &fakeService{
		locator: app.NewRelayLocator(),
		store:   store,
	}
	hubs := Hubs{
		Status:     hub.New("status"),
		Transcript: hub.New("transcript"),
		Frames:     hub.New("frames"),
		Audio:      hub.New("audio"),
	}
	return NewServer("0", svc, hubs), svc
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.fiber.Test(req, int(5*time.Second/time.Millisecond))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var decoded map[string]any
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(data) > 0 && data[0] == '{' {
		json.Unmarshal(data, &decoded)
	}
	return resp, decoded
}

func TestHandleStatus(t *testing.T) {
	s, _ := testServer(t)

	resp, body := doJSON(t, s, http.MethodGet, "/api/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["mode"] != "home" {
		t.Errorf("expected mode 'home', got %v", body["mode"])
	}
}

func TestHandleSetMode(t *testing.T) {
	s, svc := testServer(t)

	resp, _ := doJSON(t, s, http.MethodPost, "/api/mode/fast", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if svc.mode != app.ModeFast {
		t.Errorf("expected mode fast, got %v", svc.mode)
	}

	resp, _ = doJSON(t, s, http.MethodPost, "/api/mode/bogus", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown mode, got %d", resp.StatusCode)
	}
}

func TestHandleSnapshotTrigger(t *testing.T) {
	s, svc := testServer(t)

	svc.snapResult = &snapshot.Result{
		Boxes:   []detect.Box{{Label: "dog", Confidence: 0.9}},
		Summary: "I see a dog.",
	}

	resp, body := doJSON(t, s, http.MethodPost, "/api/snapshot", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["summary"] != "I see a dog." {
		t.Errorf("expected summary in response, got %v", body["summary"])
	}
}

func TestHandleSnapshotBusy(t *testing.T) {
	s, svc := testServer(t)
	svc.snapErr = snapshot.ErrBusy

	resp, _ := doJSON(t, s, http.MethodPost, "/api/snapshot", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 when busy, got %d", resp.StatusCode)
	}
}

func TestHandleSnapshotResultNotFound(t *testing.T) {
	s, _ := testServer(t)

	resp, _ := doJSON(t, s, http.MethodGet, "/api/snapshot", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 with no result held, got %d", resp.StatusCode)
	}
}

func TestHandleLiveStart(t *testing.T) {
	s, _ := testServer(t)

	resp, body := doJSON(t, s, http.MethodPost, "/api/live/start", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["state"] != "connecting" {
		t.Errorf("expected state 'connecting', got %v", body["state"])
	}
}

func TestHandleLiveStartConflict(t *testing.T) {
	s, svc := testServer(t)
	svc.liveErr = live.ErrAlreadyStarted

	resp, _ := doJSON(t, s, http.MethodPost, "/api/live/start", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for running session, got %d", resp.StatusCode)
	}
}

func TestHandleLiveStartNoMicrophone(t *testing.T) {
	s, svc := testServer(t)
	svc.liveErr = app.ErrNoMicrophone

	resp, _ := doJSON(t, s, http.MethodPost, "/api/live/start", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without microphone, got %d", resp.StatusCode)
	}
}

func TestHandleNavigateStart(t *testing.T) {
	s, svc := testServer(t)

	resp, _ := doJSON(t, s, http.MethodPost, "/api/navigate/start", NavigateRequest{Destination: "the pharmacy"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if svc.navDestination != "the pharmacy" {
		t.Errorf("expected destination recorded, got %q", svc.navDestination)
	}
}

func TestHandleNavigateStartErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		dest       string
		wantStatus int
	}{
		{"no destination", nil, "", http.StatusBadRequest},
		{"already navigating", navigate.ErrAlreadyNavigating, "x", http.StatusConflict},
		{"permission denied", navigate.ErrPermissionDenied, "x", http.StatusForbidden},
		{"unsupported", navigate.ErrUnsupported, "x", http.StatusUnprocessableEntity},
		{"no fix yet", app.ErrNoLocationFix, "x", http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, svc := testServer(t)
			svc.navErr = tt.err

			resp, _ := doJSON(t, s, http.MethodPost, "/api/navigate/start", NavigateRequest{Destination: tt.dest})
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestHandleLocationRelay(t *testing.T) {
	s, svc := testServer(t)

	resp, _ := doJSON(t, s, http.MethodPost, "/api/location", navigate.Position{Latitude: 37.77, Longitude: -122.42})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	pos, err := svc.locator.Current(context.Background())
	if err != nil {
		t.Fatalf("expected fix after relay, got error: %v", err)
	}
	if pos.Latitude != 37.77 {
		t.Errorf("expected latitude 37.77, got %v", pos.Latitude)
	}

	resp, _ = doJSON(t, s, http.MethodPost, "/api/location/denied", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if _, err := svc.locator.Current(context.Background()); err != navigate.ErrPermissionDenied {
		t.Errorf("expected ErrPermissionDenied after relay, got %v", err)
	}
}

func TestHandleJournal(t *testing.T) {
	s, svc := testServer(t)

	entry := &journal.Entry{Kind: journal.KindScene, Transcript: "A quiet kitchen."}
	svc.store.Append(entry)

	resp, _ := doJSON(t, s, http.MethodGet, "/api/journal", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, body := doJSON(t, s, http.MethodGet, "/api/journal/"+entry.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["transcript"] != "A quiet kitchen." {
		t.Errorf("expected transcript in response, got %v", body["transcript"])
	}

	resp, _ = doJSON(t, s, http.MethodDelete, "/api/journal/"+entry.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if svc.store.Count() != 0 {
		t.Errorf("expected entry deleted, %d remain", svc.store.Count())
	}

	resp, _ = doJSON(t, s, http.MethodGet, "/api/journal/"+entry.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestHandleGoogleStatusUnconfigured(t *testing.T) {
	s, _ := testServer(t)

	resp, body := doJSON(t, s, http.MethodGet, "/api/journal/google/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["connected"] != false {
		t.Errorf("expected connected false, got %v", body["connected"])
	}
}

func TestHandleOfferDisabled(t *testing.T) {
	s, _ := testServer(t)

	resp, _ := doJSON(t, s, http.MethodPost, "/api/webrtc/offer", OfferRequest{SDP: "v=0"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with ingest disabled, got %d", resp.StatusCode)
	}
}

func TestHandleOffer(t *testing.T) {
	s, _ := testServer(t)
	s.OnOffer = func(offer string) (string, error) {
		return "answer:" + offer, nil
	}

	resp, body := doJSON(t, s, http.MethodPost, "/api/webrtc/offer", OfferRequest{SDP: "v=0"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["sdp"] != "answer:v=0" {
		t.Errorf("unexpected answer: %v", body["sdp"])
	}
}
