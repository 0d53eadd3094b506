package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- SEARCH CACHE
    -- ==========================================================================
    -- One row per normalized query. Results are stored as a flexible array of
    -- objects because the PyPI metadata surface drifts over time.
    DEFINE TABLE IF NOT EXISTS search_cache SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS query_key ON search_cache TYPE string;
    DEFINE FIELD IF NOT EXISTS original_query ON search_cache TYPE string;
    DEFINE FIELD IF NOT EXISTS results ON search_cache TYPE array<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS result_count ON search_cache TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS created_at ON search_cache TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS search_cache_query_key ON search_cache FIELDS query_key UNIQUE;
    DEFINE INDEX IF NOT EXISTS search_cache_created ON search_cache FIELDS created_at;

    -- ==========================================================================
    -- README CACHE
    -- ==========================================================================
    -- Keyed by the deterministic hash of the generation request so identical
    -- requests share a single cached document.
    DEFINE TABLE IF NOT EXISTS readme_cache SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS request_hash ON readme_cache TYPE string;
    DEFINE FIELD IF NOT EXISTS package_name ON readme_cache TYPE string;
    DEFINE FIELD IF NOT EXISTS markdown ON readme_cache TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON readme_cache TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS readme_cache_hash ON readme_cache FIELDS request_hash UNIQUE;
    DEFINE INDEX IF NOT EXISTS readme_cache_package ON readme_cache FIELDS package_name;

    -- ==========================================================================
    -- PACKAGE CACHE (generated package archives)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS package_cache SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON package_cache TYPE string;
    DEFINE FIELD IF NOT EXISTS zip_path ON package_cache TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON package_cache TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS package_cache_name ON package_cache FIELDS name UNIQUE;

    -- ==========================================================================
    -- PACKAGE NAME INDEX (mirror of the PyPI simple index)
    -- ==========================================================================
    -- Bulk-replaced on every refresh; names are stored pre-normalized.
    DEFINE TABLE IF NOT EXISTS package_name SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON package_name TYPE string;

    DEFINE INDEX IF NOT EXISTS package_name_name ON package_name FIELDS name UNIQUE;

    -- ==========================================================================
    -- INDEX METADATA (single record tracking the last refresh)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS index_meta SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS last_refresh ON index_meta TYPE datetime;
    DEFINE FIELD IF NOT EXISTS package_count ON index_meta TYPE int DEFAULT 0;
`
