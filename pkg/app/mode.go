package app

import "fmt"

// Mode identifies which of the assistive views is active. Exactly one
// mode is active at a time; switching tears the previous one down.
type Mode int

const (
	// ModeHome is the landing view; no pipeline is running.
	ModeHome Mode = iota

	// ModeFast is snapshot object detection.
	ModeFast

	// ModeScene is the live scene-description session.
	ModeScene

	// ModeMaps is the guided walking loop.
	ModeMaps
)

// String returns the lowercase mode name used on the wire.
func (m Mode) String() string {
	switch m {
	case ModeHome:
		return "home"
	case ModeFast:
		return "fast"
	case ModeScene:
		return "scene"
	case ModeMaps:
		return "maps"
	default:
		return "unknown"
	}
}

// ParseMode converts a wire name back to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "home":
		return ModeHome, nil
	case "fast":
		return ModeFast, nil
	case "scene":
		return ModeScene, nil
	case "maps":
		return ModeMaps, nil
	default:
		return ModeHome, fmt.Errorf("app: unknown mode %q", s)
	}
}
