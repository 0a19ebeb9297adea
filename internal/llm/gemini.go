package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey  string
	Model   string        // default: gemini-2.0-flash
	Timeout time.Duration // default: 120s (chapter prose can take a while)
}

// GeminiClient implements TextGenerator using the Google Gemini API.
type GeminiClient struct {
	client         *genai.Client
	cfg            GeminiConfig
	circuitBreaker *CircuitBreaker
}

// NewGeminiClient creates a new Gemini client with the given configuration.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	return &GeminiClient{
		client:         client,
		cfg:            cfg,
		circuitBreaker: NewCircuitBreaker(),
	}, nil
}

// Complete sends a single-prompt generation request to Gemini and returns
// the generated text. Empty output is treated as a failure.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return "", fmt.Errorf("gemini circuit breaker open: %w", err)
		}
		return "", err
	}
	return result.(string), nil
}

func (c *GeminiClient) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	result, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: failed to generate content: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}

// GetModel returns the configured model name.
func (c *GeminiClient) GetModel() string {
	return c.cfg.Model
}

// Compile-time assertion.
var _ TextGenerator = (*GeminiClient)(nil)
