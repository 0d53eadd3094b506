package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/raphaelgruber/paipi-go/internal/codegen"
	"github.com/raphaelgruber/paipi-go/internal/models"
)

const (
	defaultSearchSize = 20
	maxSearchSize     = 100
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"service":     "paipi",
		"version":     s.version,
		"description": "AI-driven PyPI search proxy",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query string `json:"query"`
	Size  int    `json:"size,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query string
	size := defaultSearchSize

	switch r.Method {
	case http.MethodPost:
		var req searchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, s.logger, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		query = req.Query
		if req.Size > 0 {
			size = req.Size
		}
	default:
		query = r.URL.Query().Get("q")
		if raw := r.URL.Query().Get("size"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, s.logger, http.StatusBadRequest, "invalid size", raw)
				return
			}
			size = n
		}
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}

	resp, err := s.searcher.Search(r.Context(), query)
	if err != nil {
		writeError(w, s.logger, http.StatusBadGateway, "search failed", err.Error())
		return
	}
	if len(resp.Results) > size {
		resp.Results = resp.Results[:size]
	}
	writeJSON(w, s.logger, http.StatusOK, resp)
}

func (s *Server) handleReadme(w http.ResponseWriter, r *http.Request) {
	var req models.ReadmeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, s.logger, http.StatusBadRequest, "name is required", "")
		return
	}

	hash := models.ReadmeRequestHash(req)
	if rec, err := s.cache.GetReadme(r.Context(), hash); err != nil {
		s.logger.Warn("readme cache lookup failed", "error", err)
	} else if rec != nil {
		writeMarkdown(w, rec.Markdown, "hit")
		return
	}

	markdown := s.readme.Markdown(r.Context(), req)
	if _, err := s.cache.PutReadme(r.Context(), req, markdown); err != nil {
		s.logger.Warn("readme cache store failed", "package", req.Name, "error", err)
	}
	writeMarkdown(w, markdown, "miss")
}

func (s *Server) handleReadmeByName(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rec, err := s.cache.GetReadmeByName(r.Context(), name)
	if err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "readme lookup failed", err.Error())
		return
	}
	if rec == nil {
		writeError(w, s.logger, http.StatusNotFound, "no cached readme", name)
		return
	}
	writeMarkdown(w, rec.Markdown, "hit")
}

func writeMarkdown(w http.ResponseWriter, markdown, cacheState string) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("X-Cache", cacheState)
	io.WriteString(w, markdown)
}

func (s *Server) handleGeneratePackage(w http.ResponseWriter, r *http.Request) {
	var req models.PackageGenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	name, _ := req.Metadata["name"].(string)
	if strings.TrimSpace(name) == "" {
		writeError(w, s.logger, http.StatusBadRequest, "metadata.name is required", "")
		return
	}

	if path, ok, err := s.cache.PackagePath(r.Context(), name); err != nil {
		s.logger.Warn("package cache lookup failed", "package", name, "error", err)
	} else if ok {
		serveZip(w, r, name, path)
		return
	}

	if s.builder == nil {
		writeError(w, s.logger, http.StatusServiceUnavailable, "package generation unavailable", "docker is not configured")
		return
	}

	description, _ := req.Metadata["description"].(string)
	spec := codegen.Spec{
		Name:          name,
		Description:   description,
		ReadmeContent: req.ReadmeMarkdown,
	}
	outDir, err := s.builder.Generate(r.Context(), spec)
	if err != nil {
		writeError(w, s.logger, http.StatusBadGateway, "package generation failed", err.Error())
		return
	}
	data, err := codegen.ZipDir(outDir)
	if err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "package archive failed", err.Error())
		return
	}
	path, err := s.cache.StorePackage(r.Context(), name, data)
	if err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "package store failed", err.Error())
		return
	}
	serveZip(w, r, name, path)
}

func serveZip(w http.ResponseWriter, r *http.Request, name, path string) {
	filename := models.NormalizeName(name) + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, path)
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, s.logger, http.StatusBadRequest, "name is required", "")
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"name":   name,
		"exists": s.oracle.Exists(name),
	})
}

type availabilityBatchRequest struct {
	Names []string `json:"names"`
}

func (s *Server) handleAvailabilityBatch(w http.ResponseWriter, r *http.Request) {
	var req availabilityBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	results := make(map[string]bool, len(req.Names))
	for _, name := range req.Names {
		results[name] = s.oracle.Exists(name)
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, s.logger, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = n
	}
	entries, err := s.cache.History(r.Context(), limit)
	if err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "history lookup failed", err.Error())
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"history": entries})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "cache stats failed", err.Error())
		return
	}
	writeJSON(w, s.logger, http.StatusOK, stats)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Clear(r.Context()); err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, "cache clear failed", err.Error())
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"metrics": s.collector.Snapshot(),
	}

	state, err := s.oracle.Check(r.Context())
	if err != nil {
		s.logger.Warn("index state check failed", "error", err)
		resp["index"] = map[string]any{"status": "unknown"}
	} else {
		idx := map[string]any{
			"status":        string(state.Status),
			"package_count": state.PackageCount,
			"loaded":        s.oracle.Count() > 0,
		}
		if !state.LastRefresh.IsZero() {
			idx["last_refresh"] = state.LastRefresh
		}
		resp["index"] = idx
	}
	writeJSON(w, s.logger, http.StatusOK, resp)
}
