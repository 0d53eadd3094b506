package search

import (
	"testing"

	"github.com/raphaelgruber/paipi-go/internal/models"
)

func TestReconcilePreservesCandidateOrder(t *testing.T) {
	exists := func(name string) bool { return name == "b" || name == "c" }
	fabricated := map[string]*models.SearchResult{
		"a": {Name: "a", Version: "1.0.0"},
	}

	results := Reconcile([]string{"b", "a", "c"}, exists, fabricated)

	want := []string{"b", "a", "c"}
	if len(results) != len(want) {
		t.Fatalf("Expected %d results, got %d", len(want), len(results))
	}
	for i, w := range want {
		if results[i].Name != w {
			t.Errorf("results[%d] = %q, want %q", i, results[i].Name, w)
		}
	}
}

func TestReconcileRealPlaceholders(t *testing.T) {
	exists := func(string) bool { return true }

	results := Reconcile([]string{"requests"}, exists, nil)
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Version != "N/A" {
		t.Errorf("Placeholder version = %q, want N/A", r.Version)
	}
	if r.Description != placeholderDescription {
		t.Errorf("Placeholder description = %q, want %q", r.Description, placeholderDescription)
	}
	if !r.PackageExists {
		t.Error("Real name must be marked as existing")
	}
}

func TestReconcileOmitsDroppedFabrications(t *testing.T) {
	exists := func(name string) bool { return name == "real" }

	// Synthesis for both fabricated names was dropped.
	results := Reconcile([]string{"fake1", "real", "fake2"}, exists, nil)
	if len(results) != 1 {
		t.Fatalf("Expected only the real result, got %d", len(results))
	}
	if results[0].Name != "real" {
		t.Errorf("Surviving result = %q, want real", results[0].Name)
	}
}

func TestReconcileNormalizedFabricationLookup(t *testing.T) {
	exists := func(string) bool { return false }
	fabricated := map[string]*models.SearchResult{
		"my-pkg": {Name: "My_Pkg", Version: "1.0.0"},
	}

	results := Reconcile([]string{"My_Pkg"}, exists, fabricated)
	if len(results) != 1 {
		t.Fatalf("Expected fabricated result via normalized lookup, got %d", len(results))
	}
}
