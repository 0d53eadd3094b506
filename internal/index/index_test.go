package index

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raphaelgruber/paipi-go/internal/db"
)

type fakeStore struct {
	names []string
	meta  *db.IndexMeta

	replaceErr error
}

func (f *fakeStore) QueryAllPackageNames(ctx context.Context) ([]string, error) {
	return f.names, nil
}

func (f *fakeStore) QueryReplacePackageNames(ctx context.Context, names []string) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.names = names
	return nil
}

func (f *fakeStore) QueryGetIndexMeta(ctx context.Context) (*db.IndexMeta, error) {
	return f.meta, nil
}

func (f *fakeStore) QuerySetIndexMeta(ctx context.Context, refreshedAt time.Time, count int) error {
	f.meta = &db.IndexMeta{LastRefresh: refreshedAt, PackageCount: count}
	return nil
}

const simpleIndexHTML = `<!DOCTYPE html>
<html>
  <head><title>Simple index</title></head>
  <body>
    <a href="/simple/requests/">requests</a>
    <a href="/simple/flask/">Flask</a>
    <a href="/simple/zope-interface/">zope.interface</a>
    <a href="/simple/requests/">requests</a>
  </body>
</html>`

func TestExistsBeforeLoad(t *testing.T) {
	o := New(&fakeStore{}, nil)
	if o.Exists("requests") {
		t.Error("Exists should be false before any snapshot is loaded")
	}
	if o.Loaded() {
		t.Error("Loaded should be false before Load")
	}
}

func TestLoadAndExists(t *testing.T) {
	store := &fakeStore{names: []string{"requests", "Flask", "typing_extensions"}}
	o := New(store, nil)

	n, err := o.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("Expected 3 names loaded, got %d", n)
	}

	tests := []struct {
		name string
		want bool
	}{
		{"requests", true},
		{"Requests", true},
		{"REQUESTS", true},
		{"flask", true},
		{"typing_extensions", true},
		{"typing-extensions", true},
		{"no-such-package", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := o.Exists(tt.name); got != tt.want {
			t.Errorf("Exists(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	if o.Count() != 3 {
		t.Errorf("Count = %d, want 3", o.Count())
	}
}

func TestRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(simpleIndexHTML))
	}))
	defer srv.Close()

	store := &fakeStore{}
	o := New(store, nil, WithSimpleURL(srv.URL))

	var sawDownload, sawStore bool
	n, err := o.Refresh(context.Background(), func(stage string, done, total int64) {
		switch stage {
		case "download":
			sawDownload = true
		case "store":
			sawStore = true
		}
	})
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("Expected 3 names (duplicate collapsed), got %d", n)
	}
	if !sawDownload || !sawStore {
		t.Errorf("Expected both progress stages, got download=%v store=%v", sawDownload, sawStore)
	}

	// Names are stored normalized, first occurrence wins.
	want := []string{"requests", "flask", "zope-interface"}
	if len(store.names) != len(want) {
		t.Fatalf("Stored names = %v, want %v", store.names, want)
	}
	for i, name := range want {
		if store.names[i] != name {
			t.Errorf("store.names[%d] = %q, want %q", i, store.names[i], name)
		}
	}

	if store.meta == nil || store.meta.PackageCount != 3 {
		t.Fatalf("Index meta not recorded: %+v", store.meta)
	}

	// The in-memory snapshot is live immediately.
	if !o.Exists("Flask") || !o.Exists("zope-interface") {
		t.Error("Snapshot should answer for refreshed names")
	}
}

func TestRefreshHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := &fakeStore{names: []string{"kept"}}
	o := New(store, nil, WithSimpleURL(srv.URL))
	if _, err := o.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := o.Refresh(context.Background(), nil); err == nil {
		t.Fatal("Refresh should fail on HTTP 503")
	}

	// A failed refresh leaves the previous snapshot intact.
	if !o.Exists("kept") {
		t.Error("Old snapshot should survive a failed refresh")
	}
}

func TestCheck(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		meta *db.IndexMeta
		want Status
	}{
		{"never refreshed", nil, StatusMissing},
		{"zero names", &db.IndexMeta{LastRefresh: now, PackageCount: 0}, StatusEmpty},
		{"stale", &db.IndexMeta{LastRefresh: now.Add(-25 * time.Hour), PackageCount: 10}, StatusOutdated},
		{"fresh", &db.IndexMeta{LastRefresh: now.Add(-time.Hour), PackageCount: 10}, StatusRecent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(&fakeStore{meta: tt.meta}, nil)
			state, err := o.Check(context.Background())
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}
			if state.Status != tt.want {
				t.Errorf("Status = %q, want %q", state.Status, tt.want)
			}
		})
	}
}
