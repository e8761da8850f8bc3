package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/irislabs/go-iris/internal/log"
	"github.com/irislabs/go-iris/pkg/audioio"
	"github.com/irislabs/go-iris/pkg/camera"
)

// Gemini Live API websocket endpoint (BidiGenerateContent).
const geminiLiveURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// Session is one streaming scene-description session.
//
// A Session is single-use: after Stop or a transport error it cannot be
// restarted. Create a new Session for the next conversation.
type Session struct {
	cfg    Config
	mic    audioio.Source
	frames camera.Source
	output AudioOutput

	ws   *websocket.Conn
	wsMu sync.Mutex

	mu         sync.Mutex
	state      State
	epoch      string // uuid minted per Start; stale goroutines check it
	ctx        context.Context
	cancel     context.CancelFunc
	transcript strings.Builder

	// Callbacks. Set before Start; not safe to change afterwards.
	OnState      func(s State)
	OnTranscript func(text string)
	OnError      func(err error)
}

// NewSession creates a session over the given microphone source, frame
// source, and audio output. Nothing connects until Start.
func NewSession(cfg Config, mic audioio.Source, frames camera.Source, output AudioOutput) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		cfg:    cfg,
		mic:    mic,
		frames: frames,
		output: output,
		state:  StateIdle,
	}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns the running transcript accumulated so far.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.String()
}

// Start dials the live endpoint and begins the session.
//
// Start returns once the setup message has been sent; the session
// becomes active when the endpoint acknowledges setup, observable via
// State and the OnState callback. A second Start while the session is
// connecting or active returns ErrAlreadyStarted; Start on a finished
// session also fails, since sessions are single-use.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateConnecting, StateActive:
		s.mu.Unlock()
		return ErrAlreadyStarted
	case StateStopped, StateError:
		s.mu.Unlock()
		return fmt.Errorf("live: session finished, create a new one")
	}
	epoch := uuid.NewString()
	s.epoch = epoch
	s.mu.Unlock()

	s.setState(epoch, StateConnecting)

	endpoint := s.cfg.Endpoint
	if endpoint == "" {
		endpoint = geminiLiveURL
	}
	url := fmt.Sprintf("%s?key=%s", endpoint, s.cfg.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	ws, _, err := dialer.Dial(url, http.Header{})
	if err != nil {
		s.setState(epoch, StateError)
		return fmt.Errorf("live: failed to connect: %w", err)
	}

	sessCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.epoch != epoch || s.state.Terminal() {
		// Stopped while dialing. The connection never belonged to a
		// live session, so release it here.
		s.mu.Unlock()
		cancel()
		ws.Close()
		return ErrNotConnected
	}
	s.ws = ws
	s.ctx = sessCtx
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.sendSetup(); err != nil {
		s.teardown(epoch, StateError)
		return fmt.Errorf("live: failed to configure session: %w", err)
	}

	go s.readLoop(epoch)

	log.Info("live session connecting", "model", s.cfg.Model, "epoch", epoch)
	return nil
}

// Stop tears the session down. It is safe to call from any state and
// any number of times; only the first call from a non-terminal state
// does any work.
func (s *Session) Stop() error {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	s.teardown(epoch, StateStopped)
	return nil
}

// teardown moves the session to a terminal state and releases
// everything: frame ticker, microphone, pending playback, websocket.
// Safe to call repeatedly; only the first call transitions.
func (s *Session) teardown(epoch string, to State) {
	s.mu.Lock()
	if s.epoch != epoch || s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = to
	cancel := s.cancel
	ws := s.ws
	s.ws = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel() // stops the frame ticker and audio sender
	}
	if s.mic != nil {
		if err := s.mic.Stop(); err != nil {
			log.Warn("live: mic stop failed", "error", err)
		}
	}
	if s.output != nil {
		s.output.Interrupt()
	}
	if ws != nil {
		ws.Close()
	}

	log.Info("live session ended", "state", to.String(), "epoch", epoch)
	if s.OnState != nil {
		s.OnState(to)
	}
}

// setState transitions to a non-terminal state if the epoch still
// matches.
func (s *Session) setState(epoch string, to State) {
	s.mu.Lock()
	if s.epoch != epoch || s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = to
	s.mu.Unlock()

	if s.OnState != nil {
		s.OnState(to)
	}
}

// sendSetup sends the session configuration frame.
func (s *Session) sendSetup() error {
	setup := map[string]any{
		"setup": map[string]any{
			"model": s.cfg.Model,
			"generation_config": map[string]any{
				"response_modalities": []string{"AUDIO"},
				"speech_config": map[string]any{
					"voice_config": map[string]any{
						"prebuilt_voice_config": map[string]any{
							"voice_name": s.cfg.Voice,
						},
					},
				},
			},
			"system_instruction": map[string]any{
				"parts": []map[string]any{
					{"text": s.cfg.SystemPrompt},
				},
			},
		},
	}
	return s.sendJSON(setup)
}

// activate runs on setupComplete: the session becomes active and the
// upstream senders start.
func (s *Session) activate(epoch string) {
	s.mu.Lock()
	if s.epoch != epoch || s.state != StateConnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateActive
	ctx := s.ctx
	s.mu.Unlock()

	if s.mic != nil {
		if err := s.mic.Start(ctx); err != nil {
			log.Error("live: mic start failed", "error", err)
			s.fail(epoch, err)
			return
		}
		go s.audioSendLoop(ctx, epoch)
	}
	if s.frames != nil {
		go s.frameSendLoop(ctx, epoch)
	}

	log.Info("live session active", "epoch", epoch)
	if s.OnState != nil {
		s.OnState(StateActive)
	}
}

// audioSendLoop forwards microphone chunks upstream as base64 PCM16.
func (s *Session) audioSendLoop(ctx context.Context, epoch string) {
	for {
		chunk, err := s.mic.Read(ctx)
		if err != nil {
			return
		}
		if !s.epochAlive(epoch) {
			return
		}
		if err := s.sendAudio(chunk.Bytes()); err != nil {
			if s.epochAlive(epoch) {
				log.Warn("live: audio send failed", "error", err)
			}
			return
		}
	}
}

// frameSendLoop sends a camera frame upstream once per FrameInterval.
func (s *Session) frameSendLoop(ctx context.Context, epoch string) {
	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.epochAlive(epoch) {
				return
			}
			frame, err := s.frames.Frame()
			if err != nil {
				continue // no frame yet
			}
			if err := s.sendFrame(frame.JPEG); err != nil {
				if s.epochAlive(epoch) {
					log.Warn("live: frame send failed", "error", err)
				}
				return
			}
		}
	}
}

// sendAudio sends one PCM16 buffer as a realtime media chunk.
func (s *Session) sendAudio(pcm16 []byte) error {
	msg := map[string]any{
		"realtime_input": map[string]any{
			"media_chunks": []map[string]any{
				{
					"data":      base64.StdEncoding.EncodeToString(pcm16),
					"mime_type": "audio/pcm",
				},
			},
		},
	}
	return s.sendJSON(msg)
}

// sendFrame sends one JPEG frame as a realtime media chunk.
func (s *Session) sendFrame(jpeg []byte) error {
	msg := map[string]any{
		"realtime_input": map[string]any{
			"media_chunks": []map[string]any{
				{
					"data":      base64.StdEncoding.EncodeToString(jpeg),
					"mime_type": "image/jpeg",
				},
			},
		},
	}
	return s.sendJSON(msg)
}

// readLoop processes downstream messages until the session ends.
func (s *Session) readLoop(epoch string) {
	for {
		s.mu.Lock()
		ws := s.ws
		alive := s.epoch == epoch && !s.state.Terminal()
		s.mu.Unlock()
		if !alive || ws == nil {
			return
		}

		_, message, err := ws.ReadMessage()
		if err != nil {
			if s.epochAlive(epoch) {
				s.fail(epoch, fmt.Errorf("live: transport error: %w", err))
			}
			return
		}

		var msg map[string]any
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Debug("live: unparseable message", "error", err)
			continue
		}

		s.handleMessage(epoch, msg)
	}
}

// fail moves the session to the error state and surfaces the error.
func (s *Session) fail(epoch string, err error) {
	s.teardown(epoch, StateError)
	if s.OnError != nil {
		s.OnError(err)
	}
}

// handleMessage dispatches one downstream message.
func (s *Session) handleMessage(epoch string, msg map[string]any) {
	if _, ok := msg["setupComplete"]; ok {
		s.activate(epoch)
		return
	}

	if serverContent, ok := msg["serverContent"].(map[string]any); ok {
		s.handleServerContent(epoch, serverContent)
		return
	}
}

// handleServerContent processes transcript, audio, and interruption
// signals.
func (s *Session) handleServerContent(epoch string, content map[string]any) {
	// Barge-in: the user started speaking over the model. Everything
	// still queued is stale.
	if interrupted, ok := content["interrupted"].(bool); ok && interrupted {
		if s.output != nil {
			s.output.Interrupt()
		}
		log.Debug("live: interrupted, playback cleared")
		return
	}

	if turnComplete, ok := content["turnComplete"].(bool); ok && turnComplete {
		log.Debug("live: turn complete")
		return
	}

	if modelTurn, ok := content["modelTurn"].(map[string]any); ok {
		if parts, ok := modelTurn["parts"].([]any); ok {
			for _, part := range parts {
				partMap, ok := part.(map[string]any)
				if !ok {
					continue
				}
				s.handlePart(epoch, partMap)
			}
		}
	}

	if outputTranscript, ok := content["outputTranscription"].(map[string]any); ok {
		if text, ok := outputTranscript["text"].(string); ok {
			s.appendTranscript(epoch, text)
		}
	}
}

// handlePart processes one modelTurn part: inline audio or text.
func (s *Session) handlePart(epoch string, part map[string]any) {
	if inlineData, ok := part["inlineData"].(map[string]any); ok {
		mimeType, _ := inlineData["mimeType"].(string)
		if mimeType == "audio/pcm" || strings.HasPrefix(mimeType, "audio/pcm;") {
			data, _ := inlineData["data"].(string)
			pcm, err := base64.StdEncoding.DecodeString(data)
			if err != nil || len(pcm) == 0 {
				return
			}
			if !s.epochAlive(epoch) {
				return
			}
			var chunk audioio.Chunk
			chunk.FromBytes(pcm, 24000, 1)
			if s.output != nil {
				if _, err := s.output.Enqueue(context.Background(), chunk); err != nil {
					log.Warn("live: playback enqueue failed", "error", err)
				}
			}
		}
		return
	}

	if text, ok := part["text"].(string); ok {
		s.appendTranscript(epoch, text)
	}
}

// appendTranscript adds a fragment to the running transcript.
func (s *Session) appendTranscript(epoch string, text string) {
	s.mu.Lock()
	if s.epoch != epoch || s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.transcript.WriteString(text)
	s.mu.Unlock()

	if s.OnTranscript != nil {
		s.OnTranscript(text)
	}
}

// epochAlive reports whether the session with the given epoch is still
// the current, non-terminal session.
func (s *Session) epochAlive(epoch string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == epoch && !s.state.Terminal()
}

// sendJSON writes one JSON frame, serialized by wsMu.
func (s *Session) sendJSON(v any) error {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	s.mu.Lock()
	ws := s.ws
	s.mu.Unlock()

	if ws == nil {
		return ErrNotConnected
	}
	return ws.WriteJSON(v)
}
