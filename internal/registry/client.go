// Package registry talks to the live PyPI JSON API and enriches real search
// results with authoritative metadata.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/raphaelgruber/paipi-go/internal/metrics"
	"github.com/raphaelgruber/paipi-go/internal/models"
)

// DefaultBaseURL is the PyPI JSON API root.
const DefaultBaseURL = "https://pypi.org/pypi"

// ErrNotFound indicates PyPI has no project under the requested name.
var ErrNotFound = errors.New("package not found on pypi")

// Client fetches project metadata from the PyPI JSON API.
type Client struct {
	http      *http.Client
	baseURL   string
	collector *metrics.Collector
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithBaseURL overrides the JSON API root.
func WithBaseURL(u string) Option {
	return func(cl *Client) { cl.baseURL = u }
}

// NewClient creates a PyPI JSON API client.
func NewClient(collector *metrics.Collector, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		http:      &http.Client{},
		baseURL:   DefaultBaseURL,
		collector: collector,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// projectResponse mirrors the "info" envelope of the PyPI JSON API.
type projectResponse struct {
	Info struct {
		Version        string            `json:"version"`
		Summary        string            `json:"summary"`
		Description    string            `json:"description"`
		Author         string            `json:"author"`
		HomePage       string            `json:"home_page"`
		License        string            `json:"license"`
		RequiresPython string            `json:"requires_python"`
		PackageURL     string            `json:"package_url"`
		ProjectURLs    map[string]string `json:"project_urls"`
	} `json:"info"`
}

// Metadata fetches live metadata for a package. Returns ErrNotFound when the
// project does not exist.
func (c *Client) Metadata(ctx context.Context, name string) (*models.RegistryMetadata, error) {
	start := time.Now()
	defer func() {
		if c.collector != nil {
			c.collector.RecordTiming(metrics.OpRegistryFetch, time.Since(start))
		}
	}()

	u := fmt.Sprintf("%s/%s/json", c.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata for %q: %w", name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	default:
		return nil, fmt.Errorf("fetch metadata for %q: unexpected status %d", name, resp.StatusCode)
	}

	var body projectResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode metadata for %q: %w", name, err)
	}

	return &models.RegistryMetadata{
		Version:        body.Info.Version,
		Summary:        body.Info.Summary,
		Description:    body.Info.Description,
		Author:         body.Info.Author,
		HomePage:       body.Info.HomePage,
		License:        body.Info.License,
		RequiresPython: body.Info.RequiresPython,
		PackageURL:     body.Info.PackageURL,
		ProjectURLs:    body.Info.ProjectURLs,
	}, nil
}
