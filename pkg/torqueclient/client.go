// Package torqueclient is a small hand-written HTTP client for the Torque
// ingress API, mirroring the shape of the teacher's generated client
// wrapper without depending on an OpenAPI codegen toolchain: Torque's
// ingress surface is five endpoints plus a health check, not large
// enough to justify the oapi-codegen/runtime dependency it stands in for.
package torqueclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to a running Torque ingress server.
type Client struct {
	baseURL string
	opts    *options
}

// New creates a Client targeting the given ingress base URL.
func New(baseURL string, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		opts:    o,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("torqueclient: build request: %w", err)
	}
	c.opts.applyHeaders(req)

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("torqueclient: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func readError(resp *http.Response) error {
	defer resp.Body.Close()
	var e errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
		return fmt.Errorf("torqueclient: unexpected status %d", resp.StatusCode)
	}
	return fmt.Errorf("torqueclient: %s (status %d)", e.Error, resp.StatusCode)
}

// Enqueue submits a new task targeting rawURL with the given body and
// extra headers to forward on delivery, returning the assigned task ID.
func (c *Client) Enqueue(ctx context.Context, rawURL string, body []byte, headers map[string]string) (string, error) {
	q := url.Values{}
	q.Set("url", rawURL)

	path := "/?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("torqueclient: build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.opts.applyHeaders(req)

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("torqueclient: %s %s: %w", http.MethodPost, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readError(resp)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("torqueclient: decode enqueue response: %w", err)
	}
	return out.ID, nil
}

// Get fetches a task by ID.
func (c *Client) Get(ctx context.Context, id string) (*Task, error) {
	resp, err := c.do(ctx, http.MethodGet, "/tasks/"+id, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	var t Task
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("torqueclient: decode task: %w", err)
	}
	return &t, nil
}

// Delete removes a single task by ID.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/tasks/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}
	return nil
}

// DeleteAll purges every task in the queue, returning the number removed.
func (c *Client) DeleteAll(ctx context.Context) (int64, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, readError(resp)
	}

	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("torqueclient: decode delete-all response: %w", err)
	}
	return out.Deleted, nil
}

// Stats returns the current queue-depth counters.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	resp, err := c.do(ctx, http.MethodGet, "/stats", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	var s Stats
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("torqueclient: decode stats: %w", err)
	}
	return &s, nil
}

// Healthy reports whether the ingress server's /admin/health check passes.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/admin/health", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
