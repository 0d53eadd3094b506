// Package models defines the PyPI-shaped data structures exchanged between
// the search pipeline, the caches, and the HTTP API.
package models

// SearchResult is a single package entry in the PyPI-shaped search response.
// Fabricated packages carry LLM-synthesized metadata; real packages start as
// placeholders and are filled in by the live-registry augmenter.
type SearchResult struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description,omitempty"`
	Summary         string            `json:"summary,omitempty"`
	Author          string            `json:"author,omitempty"`
	AuthorEmail     string            `json:"author_email,omitempty"`
	Maintainer      string            `json:"maintainer,omitempty"`
	MaintainerEmail string            `json:"maintainer_email,omitempty"`
	HomePage        string            `json:"home_page,omitempty"`
	PackageURL      string            `json:"package_url,omitempty"`
	ReleaseURL      string            `json:"release_url,omitempty"`
	DocsURL         string            `json:"docs_url,omitempty"`
	DownloadURL     string            `json:"download_url,omitempty"`
	Keywords        string            `json:"keywords,omitempty"`
	License         string            `json:"license,omitempty"`
	Classifiers     []string          `json:"classifiers,omitempty"`
	Platform        string            `json:"platform,omitempty"`
	RequiresPython  string            `json:"requires_python,omitempty"`
	ProjectURLs     map[string]string `json:"project_urls,omitempty"`

	// PackageExists reports whether the name exists on PyPI according to the
	// local name index. Results with PackageExists=false never receive live
	// registry data.
	PackageExists bool `json:"package_exists"`
	// ReadmeCached reports whether a README is cached for this package.
	ReadmeCached bool `json:"readme_cached"`
	// PackageCached reports whether a generated package ZIP is cached.
	PackageCached bool `json:"package_cached"`
}

// SearchResponse is the PyPI search API response envelope.
type SearchResponse struct {
	Info    map[string]any  `json:"info"`
	Results []*SearchResult `json:"results"`
}

// RegistryMetadata is the subset of the live PyPI JSON API response that the
// augmenter copies onto a real package's result slot.
type RegistryMetadata struct {
	Version        string            `json:"version"`
	Summary        string            `json:"summary"`
	Description    string            `json:"description"`
	Author         string            `json:"author"`
	HomePage       string            `json:"home_page"`
	License        string            `json:"license"`
	RequiresPython string            `json:"requires_python"`
	PackageURL     string            `json:"package_url"`
	ProjectURLs    map[string]string `json:"project_urls"`
}
