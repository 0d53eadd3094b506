package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/paipi-go/internal/jsonrepair"
	"github.com/raphaelgruber/paipi-go/internal/llm"
	"github.com/raphaelgruber/paipi-go/internal/models"
)

// DefaultBatchSize is the number of fabricated names per synthesis call.
// Small batches keep prompts compact; a malformed reply invalidates the
// whole batch, so larger batches raise the cost of every parse failure.
const DefaultBatchSize = 3

const synthesizerSystemPrompt = "You are the metadata service of a Python package " +
	"index. You invent realistic, internally consistent metadata for Python packages " +
	"that do not exist yet. You respond with JSON only, no commentary and no markdown fences."

// Completer issues one system+user LLM round trip. Implemented by llm.Client.
type Completer interface {
	Complete(ctx context.Context, system, user string, opts ...llm.Option) (string, error)
}

// Synthesizer fabricates metadata for candidate names absent from the index.
type Synthesizer struct {
	llm       Completer
	fixer     jsonrepair.Fixer
	batchSize int
	logger    *slog.Logger
}

// NewSynthesizer creates a metadata synthesizer. batchSize of zero or less
// falls back to DefaultBatchSize. fixer may be nil to skip model-side JSON
// repair.
func NewSynthesizer(llm Completer, fixer jsonrepair.Fixer, batchSize int, logger *slog.Logger) *Synthesizer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{llm: llm, fixer: fixer, batchSize: batchSize, logger: logger}
}

// synthEnvelope mirrors the JSON shape demanded from the model.
type synthEnvelope struct {
	Results []synthEntry `json:"results"`
}

type synthEntry struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Summary        string `json:"summary"`
	Description    string `json:"description"`
	Author         string `json:"author"`
	License        string `json:"license"`
	Keywords       string `json:"keywords"`
	HomePage       string `json:"home_page"`
	RequiresPython string `json:"requires_python"`
}

// Synthesize fabricates metadata for the given names, keyed by normalized
// name. Batches that fail (call error or unrecoverable parse) are dropped
// without retry, so requested names may be absent from the returned mapping;
// a fatal API error abandons the remaining batches as well. Names the model
// invents on its own are discarded. Only context cancellation is returned as
// an error.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, names []string) (map[string]*models.SearchResult, error) {
	out := make(map[string]*models.SearchResult, len(names))

	for start := 0; start < len(names); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		end := start + s.batchSize
		if end > len(names) {
			end = len(names)
		}
		batch := names[start:end]

		reply, err := s.llm.Complete(ctx, synthesizerSystemPrompt, s.buildPrompt(query, batch),
			llm.WithTemperature(0.7), llm.WithMaxTokens(4000))
		if err != nil {
			if llm.IsFatal(err) {
				s.logger.Error("metadata synthesis hit a non-retryable API error, dropping remaining batches",
					"batch", batch, "error", err)
				break
			}
			s.logger.Warn("metadata synthesis call failed, dropping batch",
				"batch", batch, "error", err)
			continue
		}

		obj, strategy, err := jsonrepair.Repair(ctx, reply, s.fixer, s.logger)
		if err != nil {
			s.logger.Warn("metadata synthesis reply unrecoverable, dropping batch",
				"batch", batch, "error", err)
			continue
		}
		s.logger.Debug("metadata synthesis batch parsed",
			"batch", batch, "strategy", strategy.String())

		s.collect(obj, batch, out)
	}
	return out, nil
}

// collect converts parsed entries into results, keeping only names that were
// actually requested in this batch.
func (s *Synthesizer) collect(obj map[string]any, batch []string, out map[string]*models.SearchResult) {
	data, err := json.Marshal(obj)
	if err != nil {
		s.logger.Warn("re-encoding repaired JSON failed", "error", err)
		return
	}
	var envelope synthEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Warn("repaired JSON does not match expected shape", "error", err)
		return
	}

	requested := make(map[string]string, len(batch))
	for _, name := range batch {
		requested[models.NormalizeName(name)] = name
	}

	for _, entry := range envelope.Results {
		key := models.NormalizeName(entry.Name)
		original, ok := requested[key]
		if !ok {
			s.logger.Warn("model returned unrequested package, skipping", "name", entry.Name)
			continue
		}

		version := entry.Version
		if version == "" {
			version = "1.0.0"
		}

		// The synthesizer is the sole authority on existence for fabricated
		// names; whatever the model claims, these packages are not real.
		out[key] = &models.SearchResult{
			Name:           original,
			Version:        version,
			Summary:        entry.Summary,
			Description:    entry.Description,
			Author:         entry.Author,
			License:        entry.License,
			Keywords:       entry.Keywords,
			HomePage:       entry.HomePage,
			RequiresPython: entry.RequiresPython,
			PackageExists:  false,
		}
	}
}

func (s *Synthesizer) buildPrompt(query string, batch []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The search query was: %q.\n", query)
	fmt.Fprintf(&b, "Invent realistic PyPI metadata for these packages: %s.\n", strings.Join(batch, ", "))
	b.WriteString(`Respond with only a JSON object of this exact shape: ` +
		`{"results":[{"name":"...","version":"...","summary":"...","description":"...",` +
		`"author":"...","license":"...","keywords":"...","home_page":"...","requires_python":"..."}]}` + "\n")
	b.WriteString("Include exactly one entry per package, using the given names verbatim.")
	return b.String()
}
