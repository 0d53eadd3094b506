// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/raphaelgruber/paipi-go/internal/models"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
// Run with -short to skip the container entirely.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

func sampleResults() []*models.SearchResult {
	return []*models.SearchResult{
		{Name: "requests", Version: "2.31.0", Summary: "HTTP for Humans", PackageExists: true},
		{Name: "httpx", Version: "0.27.0", Summary: "Next generation HTTP client", PackageExists: true},
		{Name: "webfetch-pro", Version: "N/A", Summary: "Invented by the model", PackageExists: false},
	}
}

// =============================================================================
// SEARCH CACHE TESTS
// =============================================================================

func TestSearchCacheUpsertAndGet(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	key := models.NormalizeQuery("HTTP Client")
	err := testDB.QueryUpsertSearchCache(ctx, key, "HTTP Client", sampleResults())
	if err != nil {
		t.Fatalf("QueryUpsertSearchCache failed: %v", err)
	}

	rec, err := testDB.QueryGetSearchCache(ctx, key)
	if err != nil {
		t.Fatalf("QueryGetSearchCache failed: %v", err)
	}
	if rec == nil {
		t.Fatal("QueryGetSearchCache returned nil for cached query")
	}
	if rec.OriginalQuery != "HTTP Client" {
		t.Errorf("Expected original query 'HTTP Client', got %q", rec.OriginalQuery)
	}
	if rec.ResultCount != 3 || len(rec.Results) != 3 {
		t.Errorf("Expected 3 results, got count=%d len=%d", rec.ResultCount, len(rec.Results))
	}
	if rec.Results[0].Name != "requests" {
		t.Errorf("Result order not preserved: got %q first", rec.Results[0].Name)
	}
	if rec.Results[2].PackageExists {
		t.Error("Synthesized result should keep package_exists=false")
	}

	// Non-existent key
	missing, err := testDB.QueryGetSearchCache(ctx, "no-such-query")
	if err != nil {
		t.Errorf("QueryGetSearchCache with missing key should not error: %v", err)
	}
	if missing != nil {
		t.Error("QueryGetSearchCache with missing key should return nil")
	}
}

func TestSearchCacheUpsertReplaces(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	key := models.NormalizeQuery("replace me")
	if err := testDB.QueryUpsertSearchCache(ctx, key, "replace me", sampleResults()); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	smaller := sampleResults()[:1]
	if err := testDB.QueryUpsertSearchCache(ctx, key, "replace me", smaller); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	rec, err := testDB.QueryGetSearchCache(ctx, key)
	if err != nil {
		t.Fatalf("QueryGetSearchCache failed: %v", err)
	}
	if rec == nil || rec.ResultCount != 1 {
		t.Fatalf("Expected replaced entry with 1 result, got %+v", rec)
	}
}

func TestSearchHistory(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	for _, q := range []string{"history one", "history two", "history three"} {
		if err := testDB.QueryUpsertSearchCache(ctx, models.NormalizeQuery(q), q, sampleResults()); err != nil {
			t.Fatalf("upsert %q failed: %v", q, err)
		}
	}

	entries, err := testDB.QuerySearchHistory(ctx, 2)
	if err != nil {
		t.Fatalf("QuerySearchHistory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.OriginalQuery == "" {
			t.Error("History entry missing original query")
		}
		if e.ResultCount != 3 {
			t.Errorf("Expected result_count 3, got %d", e.ResultCount)
		}
	}
}

// =============================================================================
// README CACHE TESTS
// =============================================================================

func TestReadmeCache(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	req := models.ReadmeRequest{Name: "fastapi", Summary: "web framework"}
	hash := models.ReadmeRequestHash(req)

	err := testDB.QueryUpsertReadmeCache(ctx, hash, "fastapi", "# fastapi\n\nGenerated docs.")
	if err != nil {
		t.Fatalf("QueryUpsertReadmeCache failed: %v", err)
	}

	rec, err := testDB.QueryGetReadmeCache(ctx, hash)
	if err != nil {
		t.Fatalf("QueryGetReadmeCache failed: %v", err)
	}
	if rec == nil {
		t.Fatal("QueryGetReadmeCache returned nil for cached hash")
	}
	if rec.PackageName != "fastapi" {
		t.Errorf("Expected package 'fastapi', got %q", rec.PackageName)
	}

	// Lookup by package name
	byName, err := testDB.QueryGetReadmeByPackage(ctx, "fastapi")
	if err != nil {
		t.Fatalf("QueryGetReadmeByPackage failed: %v", err)
	}
	if byName == nil || byName.Markdown != rec.Markdown {
		t.Error("QueryGetReadmeByPackage should return the cached document")
	}

	has, err := testDB.QueryHasReadmeForPackage(ctx, "fastapi")
	if err != nil {
		t.Fatalf("QueryHasReadmeForPackage failed: %v", err)
	}
	if !has {
		t.Error("Expected a cached README for 'fastapi'")
	}

	has, err = testDB.QueryHasReadmeForPackage(ctx, "never-generated")
	if err != nil {
		t.Fatalf("QueryHasReadmeForPackage (missing) failed: %v", err)
	}
	if has {
		t.Error("Expected no cached README for unknown package")
	}
}

// =============================================================================
// PACKAGE CACHE TESTS
// =============================================================================

func TestPackageCache(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	err := testDB.QueryUpsertPackageCache(ctx, "gen-pkg", "/tmp/packages/gen-pkg.zip")
	if err != nil {
		t.Fatalf("QueryUpsertPackageCache failed: %v", err)
	}

	rec, err := testDB.QueryGetPackageCache(ctx, "gen-pkg")
	if err != nil {
		t.Fatalf("QueryGetPackageCache failed: %v", err)
	}
	if rec == nil {
		t.Fatal("QueryGetPackageCache returned nil for cached package")
	}
	if rec.ZipPath != "/tmp/packages/gen-pkg.zip" {
		t.Errorf("Unexpected zip path %q", rec.ZipPath)
	}

	missing, err := testDB.QueryGetPackageCache(ctx, "never-built")
	if err != nil {
		t.Errorf("QueryGetPackageCache with missing name should not error: %v", err)
	}
	if missing != nil {
		t.Error("QueryGetPackageCache with missing name should return nil")
	}
}

// =============================================================================
// PACKAGE NAME INDEX TESTS
// =============================================================================

func TestReplacePackageNames(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	first := []string{"requests", "flask", "django"}
	if err := testDB.QueryReplacePackageNames(ctx, first); err != nil {
		t.Fatalf("QueryReplacePackageNames failed: %v", err)
	}

	names, err := testDB.QueryAllPackageNames(ctx)
	if err != nil {
		t.Fatalf("QueryAllPackageNames failed: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("Expected 3 names, got %d: %v", len(names), names)
	}

	// A second replace discards the old set entirely.
	second := []string{"numpy", "pandas"}
	if err := testDB.QueryReplacePackageNames(ctx, second); err != nil {
		t.Fatalf("second replace failed: %v", err)
	}

	names, err = testDB.QueryAllPackageNames(ctx)
	if err != nil {
		t.Fatalf("QueryAllPackageNames after replace failed: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("Expected 2 names after replace, got %d: %v", len(names), names)
	}
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["numpy"] || !found["pandas"] {
		t.Errorf("Expected numpy and pandas, got %v", names)
	}
	if found["requests"] {
		t.Error("Old names should be gone after replace")
	}

	count, err := testDB.QueryCountPackageNames(ctx)
	if err != nil {
		t.Fatalf("QueryCountPackageNames failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}
}

func TestIndexMeta(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	refreshed := time.Now().UTC().Truncate(time.Second)
	if err := testDB.QuerySetIndexMeta(ctx, refreshed, 12345); err != nil {
		t.Fatalf("QuerySetIndexMeta failed: %v", err)
	}

	meta, err := testDB.QueryGetIndexMeta(ctx)
	if err != nil {
		t.Fatalf("QueryGetIndexMeta failed: %v", err)
	}
	if meta == nil {
		t.Fatal("QueryGetIndexMeta returned nil after set")
	}
	if meta.PackageCount != 12345 {
		t.Errorf("Expected package count 12345, got %d", meta.PackageCount)
	}
	if meta.LastRefresh.Before(refreshed.Add(-time.Minute)) {
		t.Errorf("Last refresh too old: %v", meta.LastRefresh)
	}
}

// =============================================================================
// STATS AND CLEANUP TESTS
// =============================================================================

func TestCacheCountsAndClear(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	if err := testDB.WipeData(ctx); err != nil {
		t.Fatalf("WipeData failed: %v", err)
	}

	if err := testDB.QueryUpsertSearchCache(ctx, "counts-q", "counts q", sampleResults()); err != nil {
		t.Fatalf("upsert search cache failed: %v", err)
	}
	if err := testDB.QueryUpsertReadmeCache(ctx, "counts-hash", "counts-pkg", "# doc"); err != nil {
		t.Fatalf("upsert readme cache failed: %v", err)
	}
	if err := testDB.QueryReplacePackageNames(ctx, []string{"requests"}); err != nil {
		t.Fatalf("replace package names failed: %v", err)
	}

	counts, err := testDB.QueryCacheCounts(ctx)
	if err != nil {
		t.Fatalf("QueryCacheCounts failed: %v", err)
	}
	if counts.Searches != 1 || counts.Readmes != 1 || counts.Packages != 0 {
		t.Errorf("Unexpected counts: %+v", counts)
	}

	// Clearing caches keeps the package-name index.
	if err := testDB.QueryClearCaches(ctx); err != nil {
		t.Fatalf("QueryClearCaches failed: %v", err)
	}

	counts, err = testDB.QueryCacheCounts(ctx)
	if err != nil {
		t.Fatalf("QueryCacheCounts after clear failed: %v", err)
	}
	if counts.Searches != 0 || counts.Readmes != 0 || counts.Packages != 0 {
		t.Errorf("Caches should be empty after clear: %+v", counts)
	}

	n, err := testDB.QueryCountPackageNames(ctx)
	if err != nil {
		t.Fatalf("QueryCountPackageNames failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Package-name index should survive cache clear, got %d names", n)
	}
}
