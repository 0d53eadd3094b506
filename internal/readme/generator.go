// Package readme drafts README documents for packages from request metadata.
package readme

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/paipi-go/internal/llm"
	"github.com/raphaelgruber/paipi-go/internal/models"
)

const systemPrompt = "You are a technical writer for Python open-source projects. " +
	"You write complete, well-structured README.md documents in GitHub-flavored " +
	"markdown. You respond with the markdown document only, no surrounding " +
	"commentary and no code fences around the whole document."

// Completer issues one system+user LLM round trip. Implemented by llm.Client.
type Completer interface {
	Complete(ctx context.Context, system, user string, opts ...llm.Option) (string, error)
}

// Generator drafts README markdown from request metadata.
type Generator struct {
	llm    Completer
	logger *slog.Logger
}

// NewGenerator creates a README generator.
func NewGenerator(llm Completer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{llm: llm, logger: logger}
}

// Markdown drafts a README for the request. When the model call fails the
// generator degrades to a minimal document assembled from the request fields
// instead of returning an error; a README request should always produce
// something usable.
func (g *Generator) Markdown(ctx context.Context, req models.ReadmeRequest) string {
	reply, err := g.llm.Complete(ctx, systemPrompt, buildPrompt(req),
		llm.WithTemperature(0.7), llm.WithMaxTokens(4000))
	if err != nil {
		g.logger.Warn("readme generation failed, using fallback document",
			"package", req.Name, "error", err)
		return Fallback(req)
	}

	markdown := strings.TrimSpace(reply)
	if markdown == "" {
		g.logger.Warn("readme generation returned empty reply, using fallback document",
			"package", req.Name)
		return Fallback(req)
	}
	return markdown
}

func buildPrompt(req models.ReadmeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a README.md for the Python package %q.\n", req.Name)

	if req.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", req.Summary)
	}
	if req.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", req.Description)
	}
	if req.License != "" {
		fmt.Fprintf(&b, "License: %s\n", req.License)
	}
	if req.RepoURL != "" {
		fmt.Fprintf(&b, "Repository: %s\n", req.RepoURL)
	}
	if req.Homepage != "" {
		fmt.Fprintf(&b, "Homepage: %s\n", req.Homepage)
	}
	if req.DocumentationURL != "" {
		fmt.Fprintf(&b, "Documentation: %s\n", req.DocumentationURL)
	}
	if req.InstallCmd != "" {
		fmt.Fprintf(&b, "Install command: %s\n", req.InstallCmd)
	}
	if req.PythonRequires != "" {
		fmt.Fprintf(&b, "Python requirement: %s\n", req.PythonRequires)
	}
	if len(req.Features) > 0 {
		fmt.Fprintf(&b, "Features:\n")
		for _, f := range req.Features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(req.UsageSnippets) > 0 {
		fmt.Fprintf(&b, "Usage examples to incorporate:\n")
		for _, u := range req.UsageSnippets {
			fmt.Fprintf(&b, "```python\n%s\n```\n", u)
		}
	}

	b.WriteString("Include installation, usage, feature and license sections where the metadata supports them.")
	return b.String()
}

// Fallback assembles a minimal README straight from the request fields.
func Fallback(req models.ReadmeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", req.Name)

	if req.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", req.Summary)
	}
	if req.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", req.Description)
	}

	install := req.InstallCmd
	if install == "" {
		install = "pip install " + models.NormalizeName(req.Name)
	}
	fmt.Fprintf(&b, "\n## Installation\n\n```bash\n%s\n```\n", install)

	if len(req.Features) > 0 {
		b.WriteString("\n## Features\n\n")
		for _, f := range req.Features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(req.UsageSnippets) > 0 {
		b.WriteString("\n## Usage\n")
		for _, u := range req.UsageSnippets {
			fmt.Fprintf(&b, "\n```python\n%s\n```\n", u)
		}
	}
	if req.License != "" {
		fmt.Fprintf(&b, "\n## License\n\n%s\n", req.License)
	}
	return b.String()
}
