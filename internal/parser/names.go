// Package parser extracts structured data from free-text LLM replies.
package parser

import (
	"regexp"
	"strings"
)

var (
	// listMarker matches leading bullets, dashes, and numbering ("1.", "- ",
	// "* ", en/em dashes) that models prepend to list items.
	listMarker = regexp.MustCompile(`^[*\-–—\s\d.]+\s*`)

	// nonIdentifier matches everything outside the package-name alphabet
	// (alphanumerics plus ".", "-", "_").
	nonIdentifier = regexp.MustCompile(`[^\w.-]+`)
)

// ParseNameList extracts candidate package names from an LLM reply expected
// to contain one name per line. Each line is stripped of list markers and
// non-identifier characters; tokens of length <= 1 are discarded. First-seen
// order is preserved and duplicates are dropped; the returned order is the
// relevance order the reconciler later relies on.
func ParseNameList(text string) []string {
	var names []string
	seen := make(map[string]bool)

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		name := listMarker.ReplaceAllString(strings.TrimSpace(line), "")
		name = nonIdentifier.ReplaceAllString(name, "")

		if len(name) <= 1 || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
