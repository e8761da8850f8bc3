package navigate

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const adviserModel = "gemini-2.0-flash"

const adviserPrompt = "You are a walking-navigation guide for a blind or low-vision " +
	"pedestrian. The image is the view straight ahead. The user is at latitude %f, " +
	"longitude %f, walking to: %s. Give exactly one short spoken instruction for the " +
	"next few steps. Mention obstacles first. No preamble, no markdown."

// GeminiAdviser issues one-shot Gemini calls for walking instructions.
type GeminiAdviser struct {
	client *genai.Client
	model  string
}

// NewGeminiAdviser creates an adviser against the Gemini API.
func NewGeminiAdviser(ctx context.Context, apiKey string) (*GeminiAdviser, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("navigate: failed to create client: %w", err)
	}
	return &GeminiAdviser{client: client, model: adviserModel}, nil
}

// Advise sends the frame, position, and destination and returns the
// model's instruction.
func (g *GeminiAdviser) Advise(ctx context.Context, jpeg []byte, pos Position, destination string) (string, error) {
	prompt := fmt.Sprintf(adviserPrompt, pos.Latitude, pos.Longitude, destination)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(jpeg, "image/jpeg"),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("navigate: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("navigate: empty instruction from model")
	}
	return text, nil
}

var _ Adviser = (*GeminiAdviser)(nil)
