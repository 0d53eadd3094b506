// Package cache fronts the SurrealDB-backed caches (searches, READMEs,
// generated packages) and the on-disk staging area for package archives.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/raphaelgruber/paipi-go/internal/db"
	"github.com/raphaelgruber/paipi-go/internal/models"
)

// Store is the persistence surface the manager needs, implemented by
// db.Client.
type Store interface {
	QueryUpsertSearchCache(ctx context.Context, queryKey, originalQuery string, results []*models.SearchResult) error
	QueryGetSearchCache(ctx context.Context, queryKey string) (*db.SearchCacheRecord, error)
	QueryAllSearchCache(ctx context.Context) ([]db.SearchCacheRecord, error)
	QuerySearchHistory(ctx context.Context, limit int) ([]db.HistoryEntry, error)
	QueryUpsertReadmeCache(ctx context.Context, requestHash, packageName, markdown string) error
	QueryGetReadmeCache(ctx context.Context, requestHash string) (*db.ReadmeCacheRecord, error)
	QueryGetReadmeByPackage(ctx context.Context, packageName string) (*db.ReadmeCacheRecord, error)
	QueryHasReadmeForPackage(ctx context.Context, packageName string) (bool, error)
	QueryUpsertPackageCache(ctx context.Context, name, zipPath string) error
	QueryGetPackageCache(ctx context.Context, name string) (*db.PackageCacheRecord, error)
	QueryCacheCounts(ctx context.Context) (db.CacheCounts, error)
	QueryClearCaches(ctx context.Context) error
}

// Stats summarizes the cache contents.
type Stats struct {
	Searches int    `json:"searches"`
	Readmes  int    `json:"readmes"`
	Packages int    `json:"packages"`
	CacheDir string `json:"cache_dir"`
}

// Manager coordinates database cache records with the archive files on disk.
type Manager struct {
	store  Store
	dir    string
	logger *slog.Logger
}

// NewManager creates a cache manager rooted at cacheDir. The packages
// subdirectory is created on first archive write, not here.
func NewManager(store Store, cacheDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, dir: cacheDir, logger: logger}
}

// Dir returns the cache root directory.
func (m *Manager) Dir() string {
	return m.dir
}

// GetSearch returns the cached response for a normalized query key, or nil.
func (m *Manager) GetSearch(ctx context.Context, queryKey string) (*db.SearchCacheRecord, error) {
	return m.store.QueryGetSearchCache(ctx, queryKey)
}

// PutSearch stores a search response under its normalized query key.
func (m *Manager) PutSearch(ctx context.Context, queryKey, originalQuery string, results []*models.SearchResult) error {
	return m.store.QueryUpsertSearchCache(ctx, queryKey, originalQuery, results)
}

// AllSearches returns every cached search, newest first.
func (m *Manager) AllSearches(ctx context.Context) ([]db.SearchCacheRecord, error) {
	return m.store.QueryAllSearchCache(ctx)
}

// History lists recent searches without their result payloads.
func (m *Manager) History(ctx context.Context, limit int) ([]db.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	return m.store.QuerySearchHistory(ctx, limit)
}

// GetReadme returns the cached README for a request hash, or nil.
func (m *Manager) GetReadme(ctx context.Context, requestHash string) (*db.ReadmeCacheRecord, error) {
	return m.store.QueryGetReadmeCache(ctx, requestHash)
}

// GetReadmeByName returns the most recent cached README for a package, or nil.
func (m *Manager) GetReadmeByName(ctx context.Context, packageName string) (*db.ReadmeCacheRecord, error) {
	return m.store.QueryGetReadmeByPackage(ctx, models.NormalizeName(packageName))
}

// PutReadme stores a generated README under the deterministic hash of its
// request and returns that hash.
func (m *Manager) PutReadme(ctx context.Context, req models.ReadmeRequest, markdown string) (string, error) {
	hash := models.ReadmeRequestHash(req)
	name := models.NormalizeName(req.Name)
	if err := m.store.QueryUpsertReadmeCache(ctx, hash, name, markdown); err != nil {
		return "", err
	}
	return hash, nil
}

// HasReadme reports whether any README is cached for the package.
func (m *Manager) HasReadme(ctx context.Context, packageName string) (bool, error) {
	return m.store.QueryHasReadmeForPackage(ctx, models.NormalizeName(packageName))
}

// HasPackage reports whether a generated archive is recorded for the package.
func (m *Manager) HasPackage(ctx context.Context, packageName string) (bool, error) {
	rec, err := m.store.QueryGetPackageCache(ctx, models.NormalizeName(packageName))
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// PackagePath returns the archive path for a generated package. A database
// record whose file has vanished from disk counts as absent.
func (m *Manager) PackagePath(ctx context.Context, packageName string) (string, bool, error) {
	rec, err := m.store.QueryGetPackageCache(ctx, models.NormalizeName(packageName))
	if err != nil {
		return "", false, err
	}
	if rec == nil {
		return "", false, nil
	}
	if _, err := os.Stat(rec.ZipPath); err != nil {
		m.logger.Warn("cached package archive missing on disk",
			"package", packageName, "path", rec.ZipPath)
		return "", false, nil
	}
	return rec.ZipPath, true, nil
}

// StorePackage writes a generated archive into the staging area and records
// it. Returns the final archive path.
func (m *Manager) StorePackage(ctx context.Context, packageName string, zipData []byte) (string, error) {
	name := models.NormalizeName(packageName)
	dir := filepath.Join(m.dir, "packages")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create package staging dir: %w", err)
	}

	path := filepath.Join(dir, name+".zip")
	if err := os.WriteFile(path, zipData, 0o644); err != nil {
		return "", fmt.Errorf("write package archive: %w", err)
	}

	if err := m.store.QueryUpsertPackageCache(ctx, name, path); err != nil {
		return "", fmt.Errorf("record package archive: %w", err)
	}
	return path, nil
}

// Stats returns the current cache record counts.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	counts, err := m.store.QueryCacheCounts(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Searches: counts.Searches,
		Readmes:  counts.Readmes,
		Packages: counts.Packages,
		CacheDir: m.dir,
	}, nil
}

// Clear drops every cached search, README and package record, and removes
// staged archives from disk. The package-name index is untouched.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.QueryClearCaches(ctx); err != nil {
		return err
	}
	staging := filepath.Join(m.dir, "packages")
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("remove package staging dir: %w", err)
	}
	m.logger.Info("caches cleared", "at", time.Now().UTC().Format(time.RFC3339))
	return nil
}
