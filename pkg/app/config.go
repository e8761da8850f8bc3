// Package app orchestrates the Iris service: it owns the active mode,
// wires media sources into the three pipelines, and exposes the
// operations the web layer calls.
package app

import (
	"os"

	"github.com/irislabs/go-iris/internal/config"
)

// Default configuration values.
const (
	DefaultPort      = config.DefaultPort
	DefaultModelPath = "models/yolov8n.onnx"
)

// Config holds all configuration for the Iris service.
// Flag parsing is done in cmd/iris/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// Port is the web server listen port.
	Port string

	// ModelPath is the YOLO ONNX model file for Fast mode.
	ModelPath string

	// Voice is the TTS voice for spoken summaries and instructions.
	Voice string

	// UseWebcam captures from a local device instead of the browser
	// WebRTC ingest. Development convenience.
	UseWebcam bool

	// JournalEnabled turns on scene journal persistence.
	JournalEnabled bool

	// JournalDir overrides the journal storage directory.
	JournalDir string

	// API keys (typically from environment variables).
	GoogleAPIKey string
	OpenAIKey    string

	// Google OAuth (for journal Google Docs sync).
	GoogleClientID     string
	GoogleClientSecret string
}

// DefaultConfig returns sensible defaults for the service.
func DefaultConfig() Config {
	return Config{
		Port:           DefaultPort,
		ModelPath:      DefaultModelPath,
		Voice:          "nova",
		JournalEnabled: true,
	}
}

// LoadEnvConfig loads configuration values from environment variables.
// Call this after flag parsing to apply environment overrides.
func (c *Config) LoadEnvConfig() {
	if port := os.Getenv("IRIS_PORT"); port != "" {
		c.Port = port
	}
	if model := os.Getenv("IRIS_MODEL_PATH"); model != "" {
		c.ModelPath = model
	}
	c.GoogleAPIKey = config.GoogleAPIKey()
	c.OpenAIKey = config.OpenAIKey()
	c.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	c.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.GoogleAPIKey == "" {
		return &ConfigError{Field: "GoogleAPIKey", Message: "GOOGLE_API_KEY environment variable is required"}
	}
	if c.OpenAIKey == "" {
		return &ConfigError{Field: "OpenAIKey", Message: "OPENAI_API_KEY environment variable is required for speech synthesis"}
	}
	if c.Port == "" {
		return &ConfigError{Field: "Port", Message: "port must not be empty"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
