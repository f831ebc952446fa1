package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPModel is a PromptGenerator backed by a plain HTTP completion
// endpoint. The response body is decoded as generic JSON and handed to
// the extractors untouched, since deployments return several shapes
// ({text}, {candidates:[...]}, a bare string, ...).
type HTTPModel struct {
	HTTPClient *http.Client
	Endpoint   string
	APIKey     string
	Model      string
}

// NewHTTPModel builds a client with a bounded timeout; a hung
// collaborator must not hang the session.
func NewHTTPModel(endpoint, apiKey, model string) (*HTTPModel, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("llm http: endpoint missing")
	}
	return &HTTPModel{
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
		Endpoint:   endpoint,
		APIKey:     apiKey,
		Model:      model,
	}, nil
}

// HTTPFactory adapts NewHTTPModel to a fallback tier.
func HTTPFactory(endpoint, apiKey, model string) Factory {
	return func(ctx context.Context) (any, error) {
		return NewHTTPModel(endpoint, apiKey, model)
	}
}

// Generate accepts either a GenerateRequest or a raw prompt string and
// posts it to the completion endpoint.
func (m *HTTPModel) Generate(ctx context.Context, req any) (any, error) {
	var body any
	switch v := req.(type) {
	case GenerateRequest:
		body = struct {
			Prompt string `json:"prompt"`
			Model  string `json:"model,omitempty"`
		}{Prompt: v.Prompt, Model: m.Model}
	case string:
		body = struct {
			Prompt string `json:"prompt"`
		}{Prompt: v}
	default:
		return nil, fmt.Errorf("llm http: unsupported request type %T", req)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if m.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+m.APIKey)
	}

	resp, err := m.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("llm http: status=%d body=%s", resp.StatusCode, string(b))
	}

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("llm http: decode response: %w", err)
	}
	return result, nil
}
