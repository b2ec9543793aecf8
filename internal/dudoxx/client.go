// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dudoxx is the client for the DUDOXX LLM proxy, an OpenAI-compatible
// chat completions endpoint. It implements both backend contracts the
// pipeline consumes: per-segment field extraction and list-field
// deduplication. Retries and timeouts are handled here; callers only see
// success or failure.
package dudoxx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Dudoxx/extractor-merger/internal/httputil"
	"github.com/Dudoxx/extractor-merger/pkg/types"
)

// DefaultBaseURL is the production LLM proxy endpoint.
const DefaultBaseURL = "https://llm-proxy.dudoxx.com/v1"

// DefaultModel is the model identifier used when none is configured.
const DefaultModel = "dudoxx"

// Client calls the DUDOXX chat completions API.
type Client struct {
	cfg        types.BackendConfig
	httpClient *http.Client
}

// NewClient validates cfg, fills defaults, and returns a ready client. An
// API key is required.
func NewClient(cfg types.BackendConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("dudoxx: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// ExtractFields sends one segment to the model and returns the decoded field
// map. The call is retried up to MaxRetries times with a fixed delay.
func (c *Client) ExtractFields(ctx context.Context, text string, fields []string, systemPrompt string) (types.FieldMap, error) {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	user := buildExtractionPrompt(text, fields)

	content, err := c.chatWithRetry(ctx, systemPrompt, user)
	if err != nil {
		return nil, err
	}

	return parseFieldMap(content)
}

// DeduplicateItems asks the model to merge near-duplicate entries for one
// field. The raw JSON payload is returned undecoded; the reconciler
// interprets the response shape permissively and falls back on error.
func (c *Client) DeduplicateItems(ctx context.Context, field string, items []string) (json.RawMessage, error) {
	user, err := buildDedupPrompt(field, items)
	if err != nil {
		return nil, err
	}

	content, err := c.chatWithRetry(ctx, buildDedupSystemPrompt(field), user)
	if err != nil {
		return nil, err
	}

	return extractJSONPayload(content)
}

// chatWithRetry runs a chat completion, retrying failed attempts with the
// configured fixed delay. The last error is wrapped after all attempts fail.
func (c *Client) chatWithRetry(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}

		content, err := c.chat(ctx, system, user)
		if err == nil {
			return content, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("dudoxx: after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

// chatRequest is the request body for the chat completions API.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the completions response the client reads.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.cfg.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling DUDOXX API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("DUDOXX API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding DUDOXX response: %w", err)
	}
	if len(cResp.Choices) == 0 {
		return "", fmt.Errorf("DUDOXX API returned no choices")
	}

	return cResp.Choices[0].Message.Content, nil
}
