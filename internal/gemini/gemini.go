package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	// Model is the fixed model every prompt is sent to.
	Model = "gemini-2.0-flash"

	// StopSequence ends generation at the first Japanese full stop so replies
	// stay one sentence long.
	StopSequence = "。"
)

// Client generates answers with the Gemini API.
type Client struct {
	models *genai.Models
}

// New creates a client for apiKey. baseURL overrides the API endpoint and
// may be empty.
func New(ctx context.Context, apiKey, baseURL string) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{models: client.Models}, nil
}

// Generate sends prompt to Model and returns the generated text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, Model, genai.Text(prompt), &genai.GenerateContentConfig{
		StopSequences: []string{StopSequence},
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
