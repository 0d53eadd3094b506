package models

// ReadmeRequest is the input metadata used to draft a README. The CLI reads
// these from YAML files; the server accepts them as JSON bodies.
type ReadmeRequest struct {
	Name             string         `json:"name" yaml:"name"`
	Summary          string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description      string         `json:"description,omitempty" yaml:"description,omitempty"`
	License          string         `json:"license,omitempty" yaml:"license,omitempty"`
	RepoURL          string         `json:"repo_url,omitempty" yaml:"repo_url,omitempty"`
	Homepage         string         `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	DocumentationURL string         `json:"documentation_url,omitempty" yaml:"documentation_url,omitempty"`
	InstallCmd       string         `json:"install_cmd,omitempty" yaml:"install_cmd,omitempty"`
	PythonRequires   string         `json:"python_requires,omitempty" yaml:"python_requires,omitempty"`
	Features         []string       `json:"features,omitempty" yaml:"features,omitempty"`
	UsageSnippets    []string       `json:"usage_snippets,omitempty" yaml:"usage_snippets,omitempty"`
	Extras           map[string]any `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// PackageGenerateRequest is the payload for generating a package ZIP from a
// README plus assembly metadata.
type PackageGenerateRequest struct {
	ReadmeMarkdown string         `json:"readme_markdown"`
	Metadata       map[string]any `json:"metadata"`
}
