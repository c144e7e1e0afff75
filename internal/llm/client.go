// Package llm wraps the Gemini API for the three model-backed capabilities:
// fallback classification, statement extraction, and query parsing. Every
// call is bounded by the configured timeout, and failures surface as
// wrapped sentinel errors so callers can degrade instead of crashing.
package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/vchukka/finsense/internal/domain"
)

const (
	// DefaultModelName is the Gemini model used when none is configured.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultTimeout bounds a single model call.
	DefaultTimeout = 15 * time.Second
)

type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	genc    *genai.Client
	model   string
	timeout time.Duration
}

// NewClient creates a Gemini-backed client. The API key may be empty, in
// which case the genai library falls back to its own environment lookup.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModelName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	genc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{genc: genc, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Complete sends a prompt and returns the raw model text. The agent loop
// owns the parsing of tool calls.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, []*genai.Part{{Text: prompt}})
}

// generate runs one bounded GenerateContent call and returns the text body.
func (c *Client) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := c.genc.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %v", domain.ErrExternalService, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response from model", domain.ErrExternalService)
	}
	return text, nil
}
