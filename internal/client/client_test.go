package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/paipi-go/internal/models"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "http client", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("size"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.SearchResponse{
			Info: map[string]any{"query": "http client"},
			Results: []*models.SearchResult{
				{Name: "requests", Version: "2.31.0", PackageExists: true},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.Search(context.Background(), "http client", 5)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "requests", resp.Results[0].Name)
	assert.True(t, resp.Results[0].PackageExists)
}

func TestReadmeReturnsMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/readme", r.URL.Path)

		var req models.ReadmeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "quantumsort", req.Name)

		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte("# quantumsort"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	markdown, err := c.Readme(context.Background(), models.ReadmeRequest{Name: "quantumsort"})
	require.NoError(t, err)
	assert.Equal(t, "# quantumsort", markdown)
}

func TestServerErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "search failed",
			"message": "generator exhausted",
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Search(context.Background(), "anything", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search failed")
	assert.Contains(t, err.Error(), "generator exhausted")
}

func TestAvailabilityBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/availability/batch", r.URL.Path)

		var req struct {
			Names []string `json:"names"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"requests", "quantumsort"}, req.Names)

		json.NewEncoder(w).Encode(map[string]any{
			"results": map[string]bool{"requests": true, "quantumsort": false},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	results, err := c.AvailabilityBatch(context.Background(), []string{"requests", "quantumsort"})
	require.NoError(t, err)
	assert.True(t, results["requests"])
	assert.False(t, results["quantumsort"])
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stats", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"metrics": map[string]any{"uptime_seconds": 42.0},
			"index":   map[string]any{"status": "recent", "package_count": 3, "loaded": true},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "recent", stats.Index.Status)
	assert.Equal(t, 3, stats.Index.PackageCount)
	assert.NotEmpty(t, stats.Metrics)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL).Health(context.Background()))
}

func TestDefaultEndpointFromEnv(t *testing.T) {
	t.Setenv("PAIPI_SERVER_URL", "http://example.test:9999")
	c := New("")
	assert.Equal(t, "http://example.test:9999", c.endpoint)
}

func TestDefaultEndpointMatchesServerPort(t *testing.T) {
	t.Setenv("PAIPI_SERVER_URL", "")
	c := New("")
	// The server binds PAIPI_PORT default 8000; the fallback must agree.
	assert.Equal(t, "http://localhost:8000", c.endpoint)
}
