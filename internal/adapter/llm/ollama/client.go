// Package ollama talks to a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	llmhttp "github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/http"
)

const (
	providerName   = "ollama"
	defaultTimeout = 120 * time.Second
	probeTimeout   = 5 * time.Second
)

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Client calls a local Ollama server via its generate API.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewClient builds a client for the given base URL, for example
// "http://localhost:11434".
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies the backend in logs and degradation notices.
func (c *Client) Name() string { return providerName }

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Available probes the server's tag list. It reports whether the server
// answers at all; a missing model is reported separately so callers can warn
// without failing over.
func (c *Client) Available(ctx context.Context) (modelFound bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, llmhttp.NewServiceUnavailableError(providerName,
			fmt.Sprintf("not reachable at %s: %v", c.baseURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, llmhttp.NewServiceUnavailableError(providerName,
			fmt.Sprintf("tag listing returned HTTP %d", resp.StatusCode))
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false, fmt.Errorf("parse tag listing: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == c.model || strings.TrimSuffix(m.Name, ":latest") == c.model {
			return true, nil
		}
	}
	return false, nil
}

// Complete sends the prompt to the generate endpoint and returns the full,
// non-streamed response text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	data, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", llmhttp.NewTimeoutError(providerName, "request timed out")
		}
		return "", llmhttp.NewServiceUnavailableError(providerName, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", llmhttp.NewModelNotFoundError(providerName,
			fmt.Sprintf("model %q not found, pull it with `ollama pull %s`", c.model, c.model))
	default:
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if len(body) > 0 && len(body) < 200 {
			msg = string(body)
		}
		return "", llmhttp.NewServiceUnavailableError(providerName, msg)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if genResp.Response == "" {
		return "", llmhttp.NewInvalidRequestError(providerName, "empty response")
	}
	return genResp.Response, nil
}
