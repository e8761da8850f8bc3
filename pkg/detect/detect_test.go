package detect

import (
	"errors"
	"testing"
)

func TestBoxHelpers(t *testing.T) {
	b := Box{X: 0.2, Y: 0.4, W: 0.2, H: 0.2}

	cx, cy := b.Center()
	if cx != 0.3 {
		t.Errorf("expected center x 0.3, got %f", cx)
	}
	if cy != 0.5 {
		t.Errorf("expected center y 0.5, got %f", cy)
	}

	area := b.Area()
	if area < 0.0399 || area > 0.0401 {
		t.Errorf("expected area 0.04, got %f", area)
	}
}

func TestLabels(t *testing.T) {
	boxes := []Box{
		{Label: "dog"},
		{Label: "cat"},
	}

	labels := Labels(boxes)
	if len(labels) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(labels))
	}
	if labels[0] != "dog" || labels[1] != "cat" {
		t.Errorf("labels out of order: %v", labels)
	}

	if got := Labels(nil); len(got) != 0 {
		t.Errorf("expected no labels for nil boxes, got %v", got)
	}
}

func TestSelectBest(t *testing.T) {
	if best := SelectBest(nil); best != nil {
		t.Errorf("expected nil for empty input, got %+v", best)
	}

	single := []Box{{Label: "cup", Confidence: 0.4, W: 0.1, H: 0.1}}
	if best := SelectBest(single); best == nil || best.Label != "cup" {
		t.Errorf("expected the only box back, got %+v", best)
	}

	// Higher confidence should win when areas are comparable
	boxes := []Box{
		{Label: "chair", Confidence: 0.5, W: 0.2, H: 0.2},
		{Label: "person", Confidence: 0.9, W: 0.2, H: 0.2},
	}
	best := SelectBest(boxes)
	if best == nil || best.Label != "person" {
		t.Errorf("expected person to be selected, got %+v", best)
	}

	// A much larger box can outrank a slightly more confident one
	boxes = []Box{
		{Label: "tv", Confidence: 0.55, W: 0.9, H: 0.9},
		{Label: "remote", Confidence: 0.6, W: 0.05, H: 0.05},
	}
	best = SelectBest(boxes)
	if best == nil || best.Label != "tv" {
		t.Errorf("expected tv to be selected, got %+v", best)
	}
}

func TestStubDetector(t *testing.T) {
	stub := NewStub([]Box{{Label: "dog", Confidence: 0.8}})

	boxes, err := stub.Detect(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(boxes) != 1 || boxes[0].Label != "dog" {
		t.Errorf("unexpected boxes: %+v", boxes)
	}

	if stub.Calls() != 1 {
		t.Errorf("expected 1 call, got %d", stub.Calls())
	}

	wantErr := errors.New("detector offline")
	stub.SetError(wantErr)
	if _, err := stub.Detect(nil); !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
}
