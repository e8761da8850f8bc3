package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewOpenAIRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAI()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	// 24000 samples = 1 second at 24kHz
	pcm := make([]byte, 48000)

	var gotAuth string
	var gotPayload map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write(pcm)
	}))
	defer server.Close()

	provider, err := NewOpenAI(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithVoice(VoiceNova),
	)
	if err != nil {
		t.Fatalf("NewOpenAI failed: %v", err)
	}
	defer provider.Close()

	result, err := provider.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected bearer auth, got %q", gotAuth)
	}
	if gotPayload["input"] != "hello there" {
		t.Errorf("Expected input 'hello there', got %v", gotPayload["input"])
	}
	if gotPayload["response_format"] != "pcm" {
		t.Errorf("Expected pcm response format, got %v", gotPayload["response_format"])
	}

	if len(result.Audio) != len(pcm) {
		t.Errorf("Expected %d audio bytes, got %d", len(pcm), len(result.Audio))
	}
	if result.SampleRate != 24000 {
		t.Errorf("Expected 24000 sample rate, got %d", result.SampleRate)
	}
	if result.Duration != time.Second {
		t.Errorf("Expected 1s duration, got %v", result.Duration)
	}
	if result.CharCount != len("hello there") {
		t.Errorf("Expected char count %d, got %d", len("hello there"), result.CharCount)
	}
}

func TestOpenAIRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(make([]byte, 480))
	}))
	defer server.Close()

	provider, err := NewOpenAI(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithRetry(3, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewOpenAI failed: %v", err)
	}
	defer provider.Close()

	if _, err := provider.Synthesize(context.Background(), "retry me"); err != nil {
		t.Fatalf("Synthesize failed after retries: %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestOpenAIRetryExhaustedKeepsServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"message": "The model is overloaded",
				"code":    "server_error",
			},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAI(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithRetry(1, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewOpenAI failed: %v", err)
	}
	defer provider.Close()

	_, err = provider.Synthesize(context.Background(), "test")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "The model is overloaded" {
		t.Errorf("Expected the server's message, got %q", apiErr.Message)
	}
	if apiErr.Code != "server_error" {
		t.Errorf("Expected code server_error, got %q", apiErr.Code)
	}
}

func TestOpenAIParsesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"message": "Incorrect API key provided",
				"code":    "invalid_api_key",
			},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAI(WithAPIKey("bad-key"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAI failed: %v", err)
	}
	defer provider.Close()

	_, err = provider.Synthesize(context.Background(), "test")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if !apiErr.IsUnauthorized() {
		t.Errorf("Expected unauthorized error, got status %d", apiErr.StatusCode)
	}
	if apiErr.Code != "invalid_api_key" {
		t.Errorf("Expected code invalid_api_key, got %q", apiErr.Code)
	}
	if apiErr.IsRetryable() {
		t.Error("401 should not be retryable")
	}
}

func TestMockSynthesize(t *testing.T) {
	m := NewMock()

	result, err := m.Synthesize(context.Background(), "I see a dog.")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if result.SampleRate != 24000 {
		t.Errorf("Expected 24000 sample rate, got %d", result.SampleRate)
	}
	if len(result.Audio) == 0 {
		t.Error("Expected non-empty audio")
	}

	calls := m.Calls()
	if len(calls) != 1 || calls[0] != "I see a dog." {
		t.Errorf("Expected one recorded call, got %v", calls)
	}
}

func TestMockWithError(t *testing.T) {
	wantErr := errors.New("synthesis unavailable")
	m := WithError(wantErr)

	_, err := m.Synthesize(context.Background(), "test")
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected injected error, got %v", err)
	}
	if err := m.Health(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Expected injected health error, got %v", err)
	}
}
