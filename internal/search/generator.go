// Package search implements the result-reconciliation pipeline: iterative
// candidate-name generation, real/fabricated classification, batched metadata
// synthesis and the final ordered assembly.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/raphaelgruber/paipi-go/internal/llm"
	"github.com/raphaelgruber/paipi-go/internal/models"
	"github.com/raphaelgruber/paipi-go/internal/parser"
)

// Pipeline defaults.
const (
	DefaultTargetCount   = 10
	DefaultMaxIterations = 5
)

const generatorSystemPrompt = "You are a package discovery assistant for the Python " +
	"Package Index. Given a search query you reply with plausible PyPI package names " +
	"only, one name per line, without commentary, descriptions or code fences."

// Chatter issues one LLM round trip over an accumulated transcript.
// Implemented by llm.Client.
type Chatter interface {
	Chat(ctx context.Context, transcript []llm.Message, opts ...llm.Option) (string, error)
}

// Generator elicits candidate package names from the model iteratively until
// a target count is reached or its iteration budget runs out.
type Generator struct {
	chat          Chatter
	maxIterations int
	logger        *slog.Logger
}

// NewGenerator creates a candidate-name generator. maxIterations of zero or
// less falls back to DefaultMaxIterations.
func NewGenerator(chat Chatter, maxIterations int, logger *slog.Logger) *Generator {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{chat: chat, maxIterations: maxIterations, logger: logger}
}

// Generate returns up to target candidate names for the query, in first-seen
// order. The conversation transcript accumulates across iterations so the
// model sees its own earlier suggestions. A failed model call ends the loop
// and whatever has accumulated is returned, possibly nothing at all; model
// failures never surface as errors to the caller.
func (g *Generator) Generate(ctx context.Context, query string, target int) ([]string, error) {
	if target <= 0 {
		target = DefaultTargetCount
	}

	transcript := []llm.Message{{Role: llm.RoleSystem, Content: generatorSystemPrompt}}

	accepted := make([]string, 0, target)
	seen := make(map[string]struct{}, target)

	for iter := 0; iter < g.maxIterations && len(accepted) < target; iter++ {
		needed := target - len(accepted)
		transcript = append(transcript, llm.Message{
			Role:    llm.RoleUser,
			Content: g.buildPrompt(query, needed, accepted),
		})

		reply, err := g.chat.Chat(ctx, transcript)
		if err != nil {
			g.logger.Warn("candidate generation iteration failed, keeping accumulated names",
				"iteration", iter, "accepted", len(accepted), "error", err)
			break
		}
		transcript = append(transcript, llm.Message{Role: llm.RoleAssistant, Content: reply})

		added := 0
		for _, name := range parser.ParseNameList(reply) {
			key := models.NormalizeName(name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			accepted = append(accepted, name)
			added++
			if len(accepted) >= target {
				break
			}
		}

		g.logger.Debug("candidate generation iteration",
			"iteration", iter, "requested", needed, "added", added, "total", len(accepted))
	}

	if len(accepted) > target {
		accepted = accepted[:target]
	}
	return accepted, nil
}

// buildPrompt asks for exactly needed new names. Already-accepted names are
// listed sorted so identical pipeline states produce identical prompt text.
func (g *Generator) buildPrompt(query string, needed int, accepted []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest exactly %d Python package names relevant to this search query: %q.\n", needed, query)
	b.WriteString("List one package name per line.")

	if len(accepted) > 0 {
		excluded := make([]string, len(accepted))
		copy(excluded, accepted)
		sort.Strings(excluded)
		b.WriteString("\nDo not suggest any of these names again: ")
		b.WriteString(strings.Join(excluded, ", "))
		b.WriteString(".")
	}
	return b.String()
}
