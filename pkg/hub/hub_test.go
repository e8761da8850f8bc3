package hub

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBroadcastToRegisteredClients(t *testing.T) {
	h := New("status")
	go h.Run()

	c1 := &Client{hub: h, send: make(chan Message, 4)}
	c2 := &Client{hub: h, send: make(chan Message, 4)}
	h.register <- c1
	h.register <- c2

	waitForCount(t, h, 2)

	h.Broadcast(NewJSONMessage([]byte(`{"mode":"fast"}`)))

	for i, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			if msg.Type != JSONMessage {
				t.Errorf("Client %d: expected JSON message, got %v", i, msg.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("Client %d never received the broadcast", i)
		}
	}
}

func TestBroadcastJSON(t *testing.T) {
	h := New("status")
	go h.Run()

	c := &Client{hub: h, send: make(chan Message, 4)}
	h.register <- c
	waitForCount(t, h, 1)

	if err := h.BroadcastJSON(map[string]string{"mode": "scene"}); err != nil {
		t.Fatalf("BroadcastJSON failed: %v", err)
	}

	select {
	case msg := <-c.send:
		var decoded map[string]string
		if err := json.Unmarshal(msg.Data, &decoded); err != nil {
			t.Fatalf("Broadcast payload not valid JSON: %v", err)
		}
		if decoded["mode"] != "scene" {
			t.Errorf("Expected mode 'scene', got %q", decoded["mode"])
		}
	case <-time.After(time.Second):
		t.Fatal("Broadcast never arrived")
	}
}

func TestSlowClientDropped(t *testing.T) {
	h := New("frames")
	go h.Run()

	slow := &Client{hub: h, send: make(chan Message)} // no buffer: always full
	h.register <- slow
	waitForCount(t, h, 1)

	h.BroadcastBinary([]byte{0xFF, 0xD8})
	waitForCount(t, h, 0)
}

func TestUnregisterClosesSend(t *testing.T) {
	h := New("transcript")
	go h.Run()

	c := &Client{hub: h, send: make(chan Message, 4)}
	h.register <- c
	waitForCount(t, h, 1)

	h.unregister <- c
	waitForCount(t, h, 0)

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("Expected send channel closed")
		}
	case <-time.After(time.Second):
		t.Fatal("Send channel never closed")
	}
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != want && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := h.ClientCount(); got != want {
		t.Fatalf("Expected %d clients, got %d", want, got)
	}
}
