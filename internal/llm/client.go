// Package llm talks to an OpenAI-compatible chat-completion endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"pharmawatch/internal/config"
)

const probePrompt = "Say OK"

var (
	// ErrMissingAPIKey is returned before any request when no credential is configured.
	ErrMissingAPIKey = errors.New("completion API key is not set")
	// ErrStatus wraps any non-200 reply from the endpoint.
	ErrStatus = errors.New("completion endpoint returned non-200 status")
	// ErrEmptyReply means the endpoint answered 200 with no choices.
	ErrEmptyReply = errors.New("completion endpoint returned no choices")
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatResponse is the subset of the reply body we read.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client is a chat-completion client.
type Client struct {
	url         string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	http        *http.Client
}

// NewClient creates a client from the completion settings.
func NewClient(cfg config.Completion) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	return &Client{
		url:         cfg.URL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		http:        &http.Client{Timeout: timeout},
	}
}

// Probe sends a trivial prompt and succeeds only on HTTP 200.
func (c *Client) Probe(ctx context.Context) error {
	resp, err := c.post(ctx, ChatRequest{
		Model:     c.model,
		Messages:  []Message{{Role: "user", Content: probePrompt}},
		MaxTokens: 10,
	})
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Complete sends prompt as a single user message and returns the first
// choice's content.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	temperature := c.temperature
	resp, err := c.post(ctx, ChatRequest{
		Model:       c.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: &temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chat ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("decoding completion reply: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return chat.Choices[0].Message.Content, nil
}

// post sends body and returns the response only when the status is 200.
// The caller owns the returned body.
func (c *Client) post(ctx context.Context, body ChatRequest) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending completion request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Debug().
			Int("status", resp.StatusCode).
			Str("body", string(snippet)).
			Msg("Completion endpoint rejected request")
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	return resp, nil
}
