// Package index maintains a local mirror of the PyPI simple index and
// answers package-name existence queries from an in-memory snapshot.
package index

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/raphaelgruber/paipi-go/internal/db"
	"github.com/raphaelgruber/paipi-go/internal/models"
)

// DefaultSimpleURL is the PyPI simple index listing every project name.
const DefaultSimpleURL = "https://pypi.org/simple/"

// StalenessWindow is how long a refreshed index counts as recent.
const StalenessWindow = 24 * time.Hour

// nameLink matches project links in the simple index HTML. The hrefs carry
// already-normalized names.
var nameLink = regexp.MustCompile(`<a href="/simple/([^/]+)/">`)

// Status describes the freshness of the local index.
type Status string

const (
	// StatusMissing means the index has never been refreshed.
	StatusMissing Status = "missing"
	// StatusEmpty means a refresh ran but stored zero names.
	StatusEmpty Status = "empty"
	// StatusOutdated means the last refresh is older than the staleness window.
	StatusOutdated Status = "outdated"
	// StatusRecent means the index was refreshed within the staleness window.
	StatusRecent Status = "recent"
)

// Store is the persistence surface the oracle needs.
type Store interface {
	QueryAllPackageNames(ctx context.Context) ([]string, error)
	QueryReplacePackageNames(ctx context.Context, names []string) error
	QueryGetIndexMeta(ctx context.Context) (*db.IndexMeta, error)
	QuerySetIndexMeta(ctx context.Context, refreshedAt time.Time, count int) error
}

// Refresh progress stages.
const (
	StageDownload = "download"
	StageStore    = "store"
)

// Progress reports refresh progress. Total is -1 when unknown.
type Progress func(stage string, done, total int64)

// Oracle answers "does this package name exist on PyPI" from a snapshot of
// the simple index. Exists never blocks on the network or the database.
type Oracle struct {
	store     Store
	http      *http.Client
	simpleURL string
	logger    *slog.Logger

	names atomic.Pointer[map[string]struct{}]
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithHTTPClient overrides the HTTP client used for refreshes.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Oracle) { o.http = c }
}

// WithSimpleURL overrides the simple index URL.
func WithSimpleURL(url string) Option {
	return func(o *Oracle) { o.simpleURL = url }
}

// New creates an oracle backed by the given store. Call Load or Refresh
// before relying on Exists.
func New(store Store, logger *slog.Logger, opts ...Option) *Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Oracle{
		store:     store,
		http:      &http.Client{},
		simpleURL: DefaultSimpleURL,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Load populates the in-memory snapshot from the database.
// Returns the number of names loaded.
func (o *Oracle) Load(ctx context.Context) (int, error) {
	names, err := o.store.QueryAllPackageNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("load index: %w", err)
	}

	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[models.NormalizeName(name)] = struct{}{}
	}
	o.names.Store(&set)

	o.logger.Info("package index loaded", "count", len(set))
	return len(set), nil
}

// Loaded reports whether a snapshot is present in memory.
func (o *Oracle) Loaded() bool {
	return o.names.Load() != nil
}

// Count returns the number of names in the current snapshot.
func (o *Oracle) Count() int {
	set := o.names.Load()
	if set == nil {
		return 0
	}
	return len(*set)
}

// Exists reports whether the name is a known PyPI project. The input is
// normalized before lookup. Returns false when no snapshot is loaded.
func (o *Oracle) Exists(name string) bool {
	set := o.names.Load()
	if set == nil {
		return false
	}
	_, ok := (*set)[models.NormalizeName(name)]
	return ok
}

// Refresh downloads the simple index, replaces the stored name set and swaps
// the in-memory snapshot. The old snapshot stays live for readers until the
// new one is fully built. Returns the number of names stored.
func (o *Oracle) Refresh(ctx context.Context, progress Progress) (int, error) {
	if progress == nil {
		progress = func(string, int64, int64) {}
	}

	body, total, err := o.download(ctx)
	if err != nil {
		return 0, err
	}

	names, err := o.readNames(body, total, progress)
	closeErr := body.Close()
	if err != nil {
		return 0, err
	}
	if closeErr != nil {
		return 0, fmt.Errorf("close index response: %w", closeErr)
	}

	o.logger.Info("simple index downloaded", "names", len(names))

	progress(StageStore, 0, int64(len(names)))
	if err := o.store.QueryReplacePackageNames(ctx, names); err != nil {
		return 0, fmt.Errorf("store index: %w", err)
	}
	progress(StageStore, int64(len(names)), int64(len(names)))

	if err := o.store.QuerySetIndexMeta(ctx, time.Now().UTC(), len(names)); err != nil {
		return 0, fmt.Errorf("store index meta: %w", err)
	}

	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	o.names.Store(&set)

	o.logger.Info("package index refreshed", "count", len(names))
	return len(names), nil
}

func (o *Oracle) download(ctx context.Context) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.simpleURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build index request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch simple index: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("fetch simple index: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}

// readNames streams the index HTML, reporting download progress, and extracts
// normalized project names in document order without duplicates.
func (o *Oracle) readNames(body io.Reader, total int64, progress Progress) ([]string, error) {
	var buf []byte
	var read int64
	chunk := make([]byte, 256*1024)

	progress(StageDownload, 0, total)
	for {
		n, err := body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			read += int64(n)
			progress(StageDownload, read, total)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read simple index: %w", err)
		}
	}

	matches := nameLink.FindAllSubmatch(buf, -1)
	names := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		name := models.NormalizeName(string(m[1]))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

// State holds the freshness status of the index plus refresh metadata.
type State struct {
	Status       Status
	LastRefresh  time.Time
	PackageCount int
}

// Check determines the freshness of the stored index.
func (o *Oracle) Check(ctx context.Context) (State, error) {
	meta, err := o.store.QueryGetIndexMeta(ctx)
	if err != nil {
		return State{}, fmt.Errorf("check index: %w", err)
	}
	if meta == nil {
		return State{Status: StatusMissing}, nil
	}

	state := State{
		LastRefresh:  meta.LastRefresh,
		PackageCount: meta.PackageCount,
	}
	switch {
	case meta.PackageCount == 0:
		state.Status = StatusEmpty
	case time.Since(meta.LastRefresh) > StalenessWindow:
		state.Status = StatusOutdated
	default:
		state.Status = StatusRecent
	}
	return state, nil
}
