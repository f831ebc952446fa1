// Package tts talks to the speech-synthesis collaborator: POST
// {"text": "..."}, answer {"audioData": <base64 WAV>, "mimeType": ...}.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	HTTPClient *http.Client
	Endpoint   string
	APIKey     string
	Voice      string
}

type synthesisRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// Synthesis is the collaborator's reply. AudioData stays base64; the
// outbound streamer decodes it right before framing.
type Synthesis struct {
	AudioData string `json:"audioData"`
	MimeType  string `json:"mimeType"`
}

func NewClient(endpoint, apiKey, voice string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Endpoint:   endpoint,
		APIKey:     apiKey,
		Voice:      voice,
	}
}

// Synthesize converts text to speech.
func (c *Client) Synthesize(ctx context.Context, text string) (Synthesis, error) {
	if c.Endpoint == "" {
		return Synthesis{}, fmt.Errorf("tts: endpoint missing")
	}
	if text == "" {
		return Synthesis{}, fmt.Errorf("tts: empty text")
	}

	payload, err := json.Marshal(synthesisRequest{Text: text, Voice: c.Voice})
	if err != nil {
		return Synthesis{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Synthesis{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Synthesis{}, fmt.Errorf("tts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Synthesis{}, fmt.Errorf("tts: status=%d body=%s", resp.StatusCode, string(b))
	}

	var syn Synthesis
	if err := json.NewDecoder(resp.Body).Decode(&syn); err != nil {
		return Synthesis{}, fmt.Errorf("tts: decode response: %w", err)
	}
	if syn.AudioData == "" {
		return Synthesis{}, fmt.Errorf("tts: response carried no audio")
	}
	return syn, nil
}
