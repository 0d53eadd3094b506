// Package client provides a REST client for the paipi server, used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/raphaelgruber/paipi-go/internal/cache"
	"github.com/raphaelgruber/paipi-go/internal/db"
	"github.com/raphaelgruber/paipi-go/internal/models"
)

// Client talks to a running paipi server.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a client for the given endpoint.
// If endpoint is empty, uses the PAIPI_SERVER_URL env var or defaults to
// localhost:8000. Timeout can be configured via PAIPI_CLIENT_TIMEOUT
// (default 10m, searches hold the connection across several model calls).
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("PAIPI_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8000"
	}

	timeout := 10 * time.Minute
	if t := os.Getenv("PAIPI_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// do sends a request and decodes a JSON response into result.
// body, when non-nil, is JSON-encoded. Non-2xx responses become errors
// carrying the server's error envelope when one is present.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	raw, err := c.doRaw(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}
	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, body any, accept string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope errorResponse
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			if envelope.Message != "" {
				return nil, fmt.Errorf("server error: %s (%s)", envelope.Error, envelope.Message)
			}
			return nil, fmt.Errorf("server error: %s", envelope.Error)
		}
		return nil, fmt.Errorf("server error: %s - %s", resp.Status, string(raw))
	}
	return raw, nil
}

// Search runs a search query. A size of 0 uses the server default.
func (c *Client) Search(ctx context.Context, query string, size int) (*models.SearchResponse, error) {
	params := url.Values{"q": {query}}
	if size > 0 {
		params.Set("size", strconv.Itoa(size))
	}

	var result models.SearchResponse
	if err := c.do(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Readme drafts (or replays) a README for the request metadata and returns
// the markdown.
func (c *Client) Readme(ctx context.Context, req models.ReadmeRequest) (string, error) {
	raw, err := c.doRaw(ctx, http.MethodPost, "/readme", req, "text/markdown")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ReadmeByName returns the most recent cached README for a package.
func (c *Client) ReadmeByName(ctx context.Context, name string) (string, error) {
	raw, err := c.doRaw(ctx, http.MethodGet, "/readme/by-name/"+url.PathEscape(name), nil, "text/markdown")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Availability reports whether a package name exists on the index.
func (c *Client) Availability(ctx context.Context, name string) (bool, error) {
	params := url.Values{"name": {name}}

	var result struct {
		Name   string `json:"name"`
		Exists bool   `json:"exists"`
	}
	if err := c.do(ctx, http.MethodGet, "/availability?"+params.Encode(), nil, &result); err != nil {
		return false, err
	}
	return result.Exists, nil
}

// AvailabilityBatch checks many names at once and returns name -> exists.
func (c *Client) AvailabilityBatch(ctx context.Context, names []string) (map[string]bool, error) {
	var result struct {
		Results map[string]bool `json:"results"`
	}
	body := map[string]any{"names": names}
	if err := c.do(ctx, http.MethodPost, "/availability/batch", body, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// GeneratePackage builds (or replays) a package ZIP and returns its bytes.
func (c *Client) GeneratePackage(ctx context.Context, req models.PackageGenerateRequest) ([]byte, error) {
	return c.doRaw(ctx, http.MethodPost, "/generate_package", req, "application/zip")
}

// History lists recent searches. A limit of 0 uses the server default.
func (c *Client) History(ctx context.Context, limit int) ([]db.HistoryEntry, error) {
	path := "/search/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var result struct {
		History []db.HistoryEntry `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.History, nil
}

// CacheStats returns the server's cache record counts.
func (c *Client) CacheStats(ctx context.Context) (*cache.Stats, error) {
	var result cache.Stats
	if err := c.do(ctx, http.MethodGet, "/cache/stats", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CacheClear drops the server's caches.
func (c *Client) CacheClear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cache/clear", nil, nil)
}

// IndexState is the index portion of the server stats response.
type IndexState struct {
	Status       string     `json:"status"`
	PackageCount int        `json:"package_count"`
	Loaded       bool       `json:"loaded"`
	LastRefresh  *time.Time `json:"last_refresh,omitempty"`
}

// ServerStats is the response of the stats endpoint.
type ServerStats struct {
	Metrics json.RawMessage `json:"metrics"`
	Index   IndexState      `json:"index"`
}

// Stats returns runtime metrics and index state. Metrics stay raw JSON so
// the CLI can render whatever operations the server reports.
func (c *Client) Stats(ctx context.Context) (*ServerStats, error) {
	var result ServerStats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health probes the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var result struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &result); err != nil {
		return err
	}
	if result.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", result.Status)
	}
	return nil
}
