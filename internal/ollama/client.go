package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "http://localhost:11434"

// Client is an HTTP client for the Ollama REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an Ollama client for the given base URL.
// An empty baseURL falls back to the local default.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		// No global timeout: pull and create run for hours and are
		// bounded per call via context deadlines.
		httpClient: &http.Client{},
	}
}

// doRequest performs an HTTP request against the Ollama API.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("ollama request timed out: %w", err)
		}
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ollama API error (%s %s): status %d: %s",
			method, path, resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

type listResponse struct {
	Models []Model `json:"models"`
}

// List implements Runtime.
func (c *Client) List(ctx context.Context) ([]Model, error) {
	var resp listResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/tags", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Pull implements Runtime. The timeout bounds the whole download.
func (c *Client) Pull(ctx context.Context, name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := map[string]any{"name": name, "stream": false}
	var resp statusResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/pull", req, &resp); err != nil {
		return fmt.Errorf("failed to pull %s: %w", name, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("failed to pull %s: %s", name, resp.Error)
	}
	return nil
}

// Create implements Runtime. The timeout bounds the model build.
func (c *Client) Create(ctx context.Context, name, modelfile string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := map[string]any{"name": name, "modelfile": modelfile, "stream": false}
	var resp statusResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/create", req, &resp); err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("failed to create %s: %s", name, resp.Error)
	}
	return nil
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate implements Runtime.
func (c *Client) Generate(ctx context.Context, model, prompt string, opts *GenerateOptions) (string, error) {
	req := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	}
	if opts != nil {
		req["options"] = opts
	}

	var resp generateResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("generate failed for %s: %s", model, resp.Error)
	}
	return resp.Response, nil
}

// Delete implements Runtime.
func (c *Client) Delete(ctx context.Context, name string) error {
	req := map[string]any{"name": name}
	if err := c.doRequest(ctx, http.MethodDelete, "/api/delete", req, nil); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}
