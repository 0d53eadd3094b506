package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// NormalizeName normalizes a package name the way PyPI does: lowercase with
// underscores folded to hyphens. All name-index lookups go through this, so
// "My_Package" and "my-package" resolve identically.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

// NormalizeQuery produces the idempotent cache key for a search query:
// lowercased and trimmed, word order preserved.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// ReadmeRequestHash returns a stable hex digest of a README request, used as
// the readme-cache key. Two requests with identical metadata hash the same.
func ReadmeRequestHash(req ReadmeRequest) string {
	// json.Marshal of a struct emits fields in declaration order, which makes
	// the digest deterministic without extra canonicalization.
	data, err := json.Marshal(req)
	if err != nil {
		// Marshal of this struct cannot fail; fall back to the name.
		data = []byte(req.Name)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
