// Package config provides configuration helpers for go-iris commands.
package config

import (
	"fmt"
	"os"
)

// Default service configuration.
const (
	DefaultPort     = "8181"
	DefaultLogLevel = "info"
)

// Port returns the API server port from IRIS_PORT env var.
// Falls back to the default if not set.
func Port() string {
	if p := os.Getenv("IRIS_PORT"); p != "" {
		return p
	}
	return DefaultPort
}

// LogLevel returns the log level from IRIS_LOG_LEVEL env var or default.
func LogLevel() string {
	if l := os.Getenv("IRIS_LOG_LEVEL"); l != "" {
		return l
	}
	return DefaultLogLevel
}

// GoogleAPIKey returns the Gemini API key from GOOGLE_API_KEY.
func GoogleAPIKey() string {
	return os.Getenv("GOOGLE_API_KEY")
}

// GoogleAPIKeyRequired returns the Gemini API key from GOOGLE_API_KEY.
// Exits if not set.
func GoogleAPIKeyRequired() string {
	key := os.Getenv("GOOGLE_API_KEY")
	if key == "" {
		fmt.Fprintln(os.Stderr, "Error: GOOGLE_API_KEY environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: GOOGLE_API_KEY=... go run ./cmd/...")
		os.Exit(1)
	}
	return key
}

// OpenAIKey returns the OpenAI API key from OPENAI_API_KEY (used for TTS).
func OpenAIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}
