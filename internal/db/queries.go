// Package db provides SurrealDB query functions for the paipi caches.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/paipi-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// SearchCacheRecord is a cached search response for one normalized query.
type SearchCacheRecord struct {
	QueryKey      string                 `json:"query_key"`
	OriginalQuery string                 `json:"original_query"`
	Results       []*models.SearchResult `json:"results"`
	ResultCount   int                    `json:"result_count"`
	CreatedAt     time.Time              `json:"created_at"`
}

// ReadmeCacheRecord is a cached generated README document.
type ReadmeCacheRecord struct {
	RequestHash string    `json:"request_hash"`
	PackageName string    `json:"package_name"`
	Markdown    string    `json:"markdown"`
	CreatedAt   time.Time `json:"created_at"`
}

// PackageCacheRecord points at a generated package archive on disk.
type PackageCacheRecord struct {
	Name      string    `json:"name"`
	ZipPath   string    `json:"zip_path"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry is one row of the search history listing.
type HistoryEntry struct {
	OriginalQuery string    `json:"original_query"`
	ResultCount   int       `json:"result_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// IndexMeta tracks the last package-name index refresh.
type IndexMeta struct {
	LastRefresh  time.Time `json:"last_refresh"`
	PackageCount int       `json:"package_count"`
}

// CacheCounts holds per-table record counts for cache statistics.
type CacheCounts struct {
	Searches int
	Readmes  int
	Packages int
}

// packageNameBatchSize bounds the size of bulk INSERT statements during an
// index refresh. The full PyPI index is several hundred thousand names.
const packageNameBatchSize = 5000

// QueryUpsertSearchCache stores a search response under its normalized query
// key, replacing any previous entry for the same key.
func (c *Client) QueryUpsertSearchCache(
	ctx context.Context,
	queryKey string,
	originalQuery string,
	results []*models.SearchResult,
) error {
	if results == nil {
		results = []*models.SearchResult{}
	}

	sql := `
		UPSERT type::record("search_cache", $key) SET
			query_key = $key,
			original_query = $query,
			results = $results,
			result_count = $count,
			created_at = time::now()
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"key":     queryKey,
		"query":   originalQuery,
		"results": results,
		"count":   len(results),
	})
	if err != nil {
		return fmt.Errorf("upsert search cache: %w", wrapQueryError(err))
	}
	return nil
}

// QueryGetSearchCache retrieves a cached search response by normalized query
// key. Returns nil if not found.
func (c *Client) QueryGetSearchCache(ctx context.Context, queryKey string) (*SearchCacheRecord, error) {
	results, err := surrealdb.Query[[]SearchCacheRecord](ctx, c.db, `
		SELECT * FROM type::record("search_cache", $key)
	`, map[string]any{"key": queryKey})

	if err != nil {
		return nil, fmt.Errorf("get search cache: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QueryAllSearchCache returns every cached search, newest first.
func (c *Client) QueryAllSearchCache(ctx context.Context) ([]SearchCacheRecord, error) {
	results, err := surrealdb.Query[[]SearchCacheRecord](ctx, c.db, `
		SELECT * FROM search_cache ORDER BY created_at DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("all search cache: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []SearchCacheRecord{}, nil
	}
	return (*results)[0].Result, nil
}

// QuerySearchHistory returns recent searches without their result payloads.
func (c *Client) QuerySearchHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	results, err := surrealdb.Query[[]HistoryEntry](ctx, c.db, `
		SELECT original_query, result_count, created_at
		FROM search_cache
		ORDER BY created_at DESC
		LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("search history: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []HistoryEntry{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryUpsertReadmeCache stores a generated README under its request hash.
func (c *Client) QueryUpsertReadmeCache(
	ctx context.Context,
	requestHash string,
	packageName string,
	markdown string,
) error {
	sql := `
		UPSERT type::record("readme_cache", $hash) SET
			request_hash = $hash,
			package_name = $package,
			markdown = $markdown,
			created_at = time::now()
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"hash":     requestHash,
		"package":  packageName,
		"markdown": markdown,
	})
	if err != nil {
		return fmt.Errorf("upsert readme cache: %w", wrapQueryError(err))
	}
	return nil
}

// QueryGetReadmeCache retrieves a cached README by request hash.
// Returns nil if not found.
func (c *Client) QueryGetReadmeCache(ctx context.Context, requestHash string) (*ReadmeCacheRecord, error) {
	results, err := surrealdb.Query[[]ReadmeCacheRecord](ctx, c.db, `
		SELECT * FROM type::record("readme_cache", $hash)
	`, map[string]any{"hash": requestHash})

	if err != nil {
		return nil, fmt.Errorf("get readme cache: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QueryGetReadmeByPackage retrieves the most recent cached README for a
// package name, regardless of which request produced it.
// Returns nil if not found.
func (c *Client) QueryGetReadmeByPackage(ctx context.Context, packageName string) (*ReadmeCacheRecord, error) {
	results, err := surrealdb.Query[[]ReadmeCacheRecord](ctx, c.db, `
		SELECT * FROM readme_cache
		WHERE package_name = $package
		ORDER BY created_at DESC
		LIMIT 1
	`, map[string]any{"package": packageName})

	if err != nil {
		return nil, fmt.Errorf("get readme by package: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QueryHasReadmeForPackage reports whether any cached README exists for the
// given package name.
func (c *Client) QueryHasReadmeForPackage(ctx context.Context, packageName string) (bool, error) {
	rec, err := c.QueryGetReadmeByPackage(ctx, packageName)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// QueryUpsertPackageCache records the archive path for a generated package.
func (c *Client) QueryUpsertPackageCache(ctx context.Context, name, zipPath string) error {
	sql := `
		UPSERT type::record("package_cache", $name) SET
			name = $name,
			zip_path = $zip_path,
			created_at = time::now()
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"name":     name,
		"zip_path": zipPath,
	})
	if err != nil {
		return fmt.Errorf("upsert package cache: %w", wrapQueryError(err))
	}
	return nil
}

// QueryGetPackageCache retrieves a generated-package record by name.
// Returns nil if not found.
func (c *Client) QueryGetPackageCache(ctx context.Context, name string) (*PackageCacheRecord, error) {
	results, err := surrealdb.Query[[]PackageCacheRecord](ctx, c.db, `
		SELECT * FROM type::record("package_cache", $name)
	`, map[string]any{"name": name})

	if err != nil {
		return nil, fmt.Errorf("get package cache: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QueryReplacePackageNames replaces the whole package-name index with the
// given names. Names must already be normalized. The delete and the batched
// inserts are separate statements, so a concurrent reader may briefly observe
// a partially loaded index; callers swap their in-memory snapshot only after
// this returns.
func (c *Client) QueryReplacePackageNames(ctx context.Context, names []string) error {
	if _, err := surrealdb.Query[any](ctx, c.db, `DELETE package_name`, nil); err != nil {
		return fmt.Errorf("clear package names: %w", wrapQueryError(err))
	}

	for start := 0; start < len(names); start += packageNameBatchSize {
		end := start + packageNameBatchSize
		if end > len(names) {
			end = len(names)
		}

		batch := make([]map[string]any, 0, end-start)
		for _, name := range names[start:end] {
			batch = append(batch, map[string]any{"name": name})
		}

		_, err := surrealdb.Query[any](ctx, c.db, `
			INSERT IGNORE INTO package_name $batch
		`, map[string]any{"batch": batch})
		if err != nil {
			return fmt.Errorf("insert package names [%d:%d]: %w", start, end, wrapQueryError(err))
		}
	}
	return nil
}

// QueryAllPackageNames returns every name in the package-name index.
func (c *Client) QueryAllPackageNames(ctx context.Context) ([]string, error) {
	results, err := surrealdb.Query[[]string](ctx, c.db, `
		SELECT VALUE name FROM package_name
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("all package names: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []string{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryGetIndexMeta retrieves the index refresh metadata.
// Returns nil if the index has never been refreshed.
func (c *Client) QueryGetIndexMeta(ctx context.Context) (*IndexMeta, error) {
	results, err := surrealdb.Query[[]IndexMeta](ctx, c.db, `
		SELECT * FROM type::record("index_meta", "current")
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("get index meta: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QuerySetIndexMeta records a completed index refresh.
func (c *Client) QuerySetIndexMeta(ctx context.Context, refreshedAt time.Time, packageCount int) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("index_meta", "current") SET
			last_refresh = <datetime>$refreshed,
			package_count = $count
	`, map[string]any{
		"refreshed": refreshedAt.UTC().Format(time.RFC3339Nano),
		"count":     packageCount,
	})
	if err != nil {
		return fmt.Errorf("set index meta: %w", wrapQueryError(err))
	}
	return nil
}

// QueryCacheCounts returns record counts for the three cache tables.
func (c *Client) QueryCacheCounts(ctx context.Context) (CacheCounts, error) {
	var counts CacheCounts

	for _, t := range []struct {
		table string
		dst   *int
	}{
		{"search_cache", &counts.Searches},
		{"readme_cache", &counts.Readmes},
		{"package_cache", &counts.Packages},
	} {
		n, err := c.queryCount(ctx, t.table)
		if err != nil {
			return CacheCounts{}, err
		}
		*t.dst = n
	}
	return counts, nil
}

// QueryCountPackageNames returns the number of names in the index.
func (c *Client) QueryCountPackageNames(ctx context.Context) (int, error) {
	return c.queryCount(ctx, "package_name")
}

func (c *Client) queryCount(ctx context.Context, table string) (int, error) {
	sql := fmt.Sprintf(`SELECT count() AS c FROM %s GROUP ALL`, table)
	results, err := surrealdb.Query[[]struct {
		C int `json:"c"`
	}](ctx, c.db, sql, nil)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].C, nil
}

// QueryClearCaches deletes all cached searches, READMEs and package records.
// The package-name index and its metadata are left untouched.
func (c *Client) QueryClearCaches(ctx context.Context) error {
	for _, table := range []string{"search_cache", "readme_cache", "package_cache"} {
		sql := fmt.Sprintf("DELETE %s", table)
		if _, err := surrealdb.Query[any](ctx, c.db, sql, nil); err != nil {
			return fmt.Errorf("clear %s: %w", table, wrapQueryError(err))
		}
	}
	return nil
}
