package registry

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/paipi-go/internal/models"
)

// DefaultConcurrency bounds the number of parallel PyPI fetches.
const DefaultConcurrency = 10

// MetadataFetcher fetches live metadata for one package name.
type MetadataFetcher interface {
	Metadata(ctx context.Context, name string) (*models.RegistryMetadata, error)
}

// ReadmeStore persists package descriptions pulled from the live registry.
type ReadmeStore interface {
	QueryUpsertReadmeCache(ctx context.Context, requestHash, packageName, markdown string) error
}

// Augmenter overwrites real search results with live registry metadata.
// Fetches run concurrently up to the configured limit; a failed fetch
// downgrades the result instead of failing the search.
type Augmenter struct {
	fetcher     MetadataFetcher
	readmes     ReadmeStore
	concurrency int
	logger      *slog.Logger
}

// NewAugmenter creates an augmenter. A concurrency of zero or less falls back
// to DefaultConcurrency. readmes may be nil to skip description caching.
func NewAugmenter(fetcher MetadataFetcher, readmes ReadmeStore, concurrency int, logger *slog.Logger) *Augmenter {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Augmenter{
		fetcher:     fetcher,
		readmes:     readmes,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Augment fills in live metadata for every result marked as existing. Results
// are updated in place; slice order never changes. Only context cancellation
// aborts the whole pass.
func (a *Augmenter) Augment(ctx context.Context, results []*models.SearchResult) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, result := range results {
		if !result.PackageExists {
			continue
		}
		result := result
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a.augmentOne(ctx, result)
			return nil
		})
	}
	return g.Wait()
}

// augmentOne fetches and applies metadata for a single result. Any failure
// demotes the result to non-existing so the response never advertises live
// data it does not have.
func (a *Augmenter) augmentOne(ctx context.Context, result *models.SearchResult) {
	meta, err := a.fetcher.Metadata(ctx, result.Name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			a.logger.Warn("package in index but missing on pypi", "package", result.Name)
		} else {
			a.logger.Warn("registry fetch failed", "package", result.Name, "error", err)
		}
		result.PackageExists = false
		result.ReadmeCached = false
		result.PackageCached = false
		return
	}

	result.Version = meta.Version
	result.Summary = meta.Summary
	result.Description = meta.Description
	result.Author = meta.Author
	result.HomePage = meta.HomePage
	result.License = meta.License
	result.RequiresPython = meta.RequiresPython
	result.PackageURL = meta.PackageURL
	result.ProjectURLs = meta.ProjectURLs

	if a.readmes != nil && meta.Description != "" {
		hash := models.ReadmeRequestHash(models.ReadmeRequest{
			Name:    result.Name,
			Summary: meta.Summary,
		})
		if err := a.readmes.QueryUpsertReadmeCache(ctx, hash, result.Name, meta.Description); err != nil {
			a.logger.Warn("caching registry readme failed", "package", result.Name, "error", err)
		} else {
			result.ReadmeCached = true
		}
	}
}
