// Package detect provides object detection for captured camera frames.
package detect

import "github.com/google/uuid"

// Box represents a detected object as a normalized bounding box.
type Box struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	X          float64 `json:"x"`      // Top-left corner (0-1 normalized)
	Y          float64 `json:"y"`      // Top-left corner (0-1 normalized)
	W          float64 `json:"width"`  // Width (0-1 normalized)
	H          float64 `json:"height"` // Height (0-1 normalized)
	Confidence float64 `json:"confidence"`
}

// Center returns the center point of the box.
func (b Box) Center() (x, y float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// Area returns the area of the bounding box.
func (b Box) Area() float64 {
	return b.W * b.H
}

// Detector is the interface for object detection backends.
type Detector interface {
	// Detect finds objects in the JPEG image and returns normalized boxes.
	Detect(jpeg []byte) ([]Box, error)

	// Close releases resources.
	Close() error
}

// newBoxID returns a fresh identifier for a detection box.
func newBoxID() string {
	return uuid.NewString()
}

// Labels extracts the label of each box, preserving order.
func Labels(boxes []Box) []string {
	labels := make([]string, len(boxes))
	for i, b := range boxes {
		labels[i] = b.Label
	}
	return labels
}

// SelectBest picks the most prominent detection from multiple boxes.
// Priority: confidence * 0.7 + area * 0.3.
func SelectBest(boxes []Box) *Box {
	if len(boxes) == 0 {
		return nil
	}

	if len(boxes) == 1 {
		return &boxes[0]
	}

	// Find max area for normalization
	maxArea := 0.0
	for _, b := range boxes {
		if b.Area() > maxArea {
			maxArea = b.Area()
		}
	}

	bestScore := -1.0
	var best *Box

	for i := range boxes {
		score := boxes[i].Confidence*0.7 + (boxes[i].Area()/maxArea)*0.3
		if score > bestScore {
			bestScore = score
			best = &boxes[i]
		}
	}

	return best
}
