package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiModel is a ContentGenerator backed by the Google GenAI SDK.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel dials the Gemini API. Fails fast when the key is
// missing so tier fallback can move on without a network round trip.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key missing")
	}
	if model == "" {
		return nil, fmt.Errorf("gemini: model name missing")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// GeminiFactory adapts NewGeminiModel to a fallback tier.
func GeminiFactory(apiKey, model string) Factory {
	return func(ctx context.Context) (any, error) {
		return NewGeminiModel(ctx, apiKey, model)
	}
}

// GenerateContent runs one completion and returns the raw SDK response;
// text extraction happens in ExtractText alongside the other result
// shapes.
func (m *GeminiModel) GenerateContent(ctx context.Context, prompt string) (any, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	return resp, nil
}
