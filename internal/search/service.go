package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/paipi-go/internal/db"
	"github.com/raphaelgruber/paipi-go/internal/metrics"
	"github.com/raphaelgruber/paipi-go/internal/models"
)

// NameGenerator produces candidate package names for a query.
type NameGenerator interface {
	Generate(ctx context.Context, query string, target int) ([]string, error)
}

// MetadataSynthesizer fabricates metadata for non-existing names.
type MetadataSynthesizer interface {
	Synthesize(ctx context.Context, query string, names []string) (map[string]*models.SearchResult, error)
}

// ResultAugmenter fills real results with live registry data.
type ResultAugmenter interface {
	Augment(ctx context.Context, results []*models.SearchResult) error
}

// ExistenceOracle answers whether a name is a known PyPI project.
type ExistenceOracle interface {
	Exists(name string) bool
}

// Cache is the persistence surface of the search service.
type Cache interface {
	GetSearch(ctx context.Context, queryKey string) (*db.SearchCacheRecord, error)
	PutSearch(ctx context.Context, queryKey, originalQuery string, results []*models.SearchResult) error
	AllSearches(ctx context.Context) ([]db.SearchCacheRecord, error)
	HasReadme(ctx context.Context, packageName string) (bool, error)
	HasPackage(ctx context.Context, packageName string) (bool, error)
}

// Service runs the full search pipeline: cache check, candidate generation,
// real/fabricated split, synthesis, augmentation and caching of the result.
type Service struct {
	generator   NameGenerator
	synthesizer MetadataSynthesizer
	augmenter   ResultAugmenter
	oracle      ExistenceOracle
	cache       Cache
	collector   *metrics.Collector
	logger      *slog.Logger
	targetCount int
}

// NewService wires the pipeline stages together. targetCount of zero or less
// falls back to DefaultTargetCount; collector may be nil.
func NewService(
	generator NameGenerator,
	synthesizer MetadataSynthesizer,
	augmenter ResultAugmenter,
	oracle ExistenceOracle,
	cache Cache,
	collector *metrics.Collector,
	logger *slog.Logger,
	targetCount int,
) *Service {
	if targetCount <= 0 {
		targetCount = DefaultTargetCount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		generator:   generator,
		synthesizer: synthesizer,
		augmenter:   augmenter,
		oracle:      oracle,
		cache:       cache,
		collector:   collector,
		logger:      logger,
		targetCount: targetCount,
	}
}

// Search answers a package-search query. An empty query returns the
// concatenation of all cached searches instead of invoking the model.
// Identical queries (after normalization) are served from the cache.
// Candidate generation failing outright yields an empty response, not an
// error; the worst case of model unreliability is fewer results.
func (s *Service) Search(ctx context.Context, query string) (*models.SearchResponse, error) {
	start := time.Now()
	defer func() {
		if s.collector != nil {
			s.collector.RecordTiming(metrics.OpSearch, time.Since(start))
		}
	}()

	if strings.TrimSpace(query) == "" {
		return s.cachedCatalog(ctx)
	}

	key := models.NormalizeQuery(query)
	if rec, err := s.cache.GetSearch(ctx, key); err != nil {
		s.logger.Warn("search cache lookup failed", "query", query, "error", err)
	} else if rec != nil {
		s.logger.Info("search served from cache", "query", query, "results", rec.ResultCount)
		return &models.SearchResponse{
			Info: map[string]any{
				"query":  query,
				"count":  rec.ResultCount,
				"cached": true,
			},
			Results: rec.Results,
		}, nil
	}

	names, err := s.generator.Generate(ctx, query, s.targetCount)
	if err != nil {
		s.logger.Warn("candidate generation failed", "query", query, "error", err)
		names = nil
	}
	if len(names) == 0 {
		s.logger.Info("no candidates produced, returning empty result set", "query", query)
		return &models.SearchResponse{
			Info: map[string]any{
				"query":  query,
				"count":  0,
				"cached": false,
			},
			Results: []*models.SearchResult{},
		}, nil
	}

	var fakeNames []string
	for _, name := range names {
		if !s.oracle.Exists(name) {
			fakeNames = append(fakeNames, name)
		}
	}
	s.logger.Info("candidates classified",
		"query", query, "total", len(names),
		"real", len(names)-len(fakeNames), "fabricated", len(fakeNames))

	fabricated, err := s.synthesizer.Synthesize(ctx, query, fakeNames)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	results := Reconcile(names, s.oracle.Exists, fabricated)
	s.applyCacheFlags(ctx, results)

	if err := s.augmenter.Augment(ctx, results); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	if err := s.cache.PutSearch(ctx, key, query, results); err != nil {
		s.logger.Warn("caching search results failed", "query", query, "error", err)
	}

	return &models.SearchResponse{
		Info: map[string]any{
			"query":  query,
			"count":  len(results),
			"cached": false,
		},
		Results: results,
	}, nil
}

// applyCacheFlags marks results whose README or generated package is already
// cached. Lookup failures leave the flags unset.
func (s *Service) applyCacheFlags(ctx context.Context, results []*models.SearchResult) {
	for _, r := range results {
		if has, err := s.cache.HasReadme(ctx, r.Name); err != nil {
			s.logger.Warn("readme cache flag lookup failed", "package", r.Name, "error", err)
		} else {
			r.ReadmeCached = has
		}
		if has, err := s.cache.HasPackage(ctx, r.Name); err != nil {
			s.logger.Warn("package cache flag lookup failed", "package", r.Name, "error", err)
		} else {
			r.PackageCached = has
		}
	}
}

// cachedCatalog concatenates every cached search into one response, newest
// search first.
func (s *Service) cachedCatalog(ctx context.Context) (*models.SearchResponse, error) {
	records, err := s.cache.AllSearches(ctx)
	if err != nil {
		return nil, fmt.Errorf("cached catalog: %w", err)
	}

	var results []*models.SearchResult
	for _, rec := range records {
		results = append(results, rec.Results...)
	}

	return &models.SearchResponse{
		Info: map[string]any{
			"query":    "",
			"count":    len(results),
			"cached":   true,
			"searches": len(records),
		},
		Results: results,
	}, nil
}
