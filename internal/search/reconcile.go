package search

import (
	"github.com/raphaelgruber/paipi-go/internal/models"
)

// Placeholder fields mark a real package that has not been augmented with
// live registry data yet.
const (
	placeholderVersion     = "N/A"
	placeholderDescription = "This is a real package. Full details will be fetched from PyPI."
)

// Reconcile assembles the final result set in candidate order. Real names
// become placeholders for the augmenter to fill in; fabricated names take
// their synthesized metadata. Names whose synthesis batch was dropped are
// omitted, never padded with empty entries.
func Reconcile(candidates []string, exists func(string) bool, fabricated map[string]*models.SearchResult) []*models.SearchResult {
	results := make([]*models.SearchResult, 0, len(candidates))
	for _, name := range candidates {
		if exists(name) {
			results = append(results, &models.SearchResult{
				Name:          name,
				Version:       placeholderVersion,
				Description:   placeholderDescription,
				PackageExists: true,
			})
			continue
		}
		if r, ok := fabricated[models.NormalizeName(name)]; ok {
			results = append(results, r)
		}
	}
	return results
}
