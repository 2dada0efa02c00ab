// Package tts synthesizes advisory text into speech through a hosted TTS
// HTTP API. Synthesis is best-effort: callers treat a failed synthesis the
// same way as a missing one.
package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	client *resty.Client
	apiKey string
	model  string
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		client: resty.New().SetBaseURL(baseURL),
		apiKey: apiKey,
		model:  model,
	}
}

type synthesizeResponse struct {
	Result struct {
		URL string `json:"url"`
	} `json:"result"`
}

// Synthesize sends the text to the TTS endpoint and returns the URL of the
// generated audio.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	body := map[string]any{
		"text":     text,
		"model":    c.model,
		"blocking": "true",
	}

	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/api/v1/tts")

	if err != nil {
		slog.Error("tts request failed", "error", err)
		return "", fmt.Errorf("tts request failed: %w", err)
	}

	if !res.IsSuccess() {
		return "", fmt.Errorf("tts request failed with status %d: %s", res.StatusCode(), res.String())
	}

	var parsed synthesizeResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		return "", fmt.Errorf("error parsing tts response: %w", err)
	}
	if parsed.Result.URL == "" {
		return "", fmt.Errorf("tts response contained no audio url")
	}

	return parsed.Result.URL, nil
}
