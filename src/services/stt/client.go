// Package stt talks to the speech-to-text collaborator: a WAV file
// upload that answers {"text": "..."}.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	HTTPClient *http.Client
	Endpoint   string
	APIKey     string
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Endpoint:   endpoint,
		APIKey:     apiKey,
	}
}

// Transcribe uploads one utterance as a WAV file and returns the
// transcript, trimmed. The transcript may legitimately be empty when
// the caller was silent; the pipeline treats that as a quiet abort.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if c.Endpoint == "" {
		return "", fmt.Errorf("stt: endpoint missing")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(wav); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("stt: status=%d body=%s", resp.StatusCode, string(b))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("stt: decode response: %w", err)
	}
	return strings.TrimSpace(tr.Text), nil
}
