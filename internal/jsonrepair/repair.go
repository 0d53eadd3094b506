// Package jsonrepair recovers structured objects from malformed LLM output.
//
// Model replies are the least reliable input in the system, so parsing is a
// layered fallback: cheap syntactic fixes first, a deterministic model
// round-trip last. Each strategy is attempted only when the previous one
// fails, and every stage failure is logged with the offending raw text so it
// can be inspected offline.
package jsonrepair

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnrecoverable is returned when every repair strategy has been exhausted.
// The wrapped message carries the last raw text for diagnostics.
var ErrUnrecoverable = errors.New("unrecoverable JSON response")

// Strategy identifies which repair step produced a successful parse.
type Strategy int

// Repair strategies, in the order they are attempted.
const (
	StrategyDirect     Strategy = iota + 1 // fence stripping + direct parse
	StrategyUntruncate                     // truncation-completion heuristic
	StrategyLLMFix                         // deterministic model repair call
)

// String returns the strategy name for logging.
func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyUntruncate:
		return "untruncate"
	case StrategyLLMFix:
		return "llm_fix"
	default:
		return "none"
	}
}

// Fixer issues a single deterministic model call that returns only the
// corrected JSON for a broken input. Implemented by llm.Client.
type Fixer interface {
	FixJSON(ctx context.Context, broken string) (string, error)
}

// Repair parses raw text suspected to contain a JSON object, applying repair
// strategies in strict order. A nil fixer skips the model-repair step. On
// success it returns the object and the strategy that produced it; it never
// silently returns partial garbage.
func Repair(ctx context.Context, raw string, fixer Fixer, logger *slog.Logger) (map[string]any, Strategy, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := StripFences(raw)

	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj, StrategyDirect, nil
	} else {
		logger.Warn("direct JSON parse failed, attempting repairs", "error", err, "raw", s)
	}

	completed := CompleteTruncated(s)
	if err := json.Unmarshal([]byte(completed), &obj); err == nil {
		logger.Info("repaired JSON with truncation completion")
		return obj, StrategyUntruncate, nil
	} else {
		logger.Warn("truncation completion failed", "error", err)
	}

	if fixer != nil {
		fixed, err := fixer.FixJSON(ctx, s)
		if err != nil {
			logger.Warn("llm JSON fix call failed", "error", err)
		} else {
			fixed = StripFences(fixed)
			if err := json.Unmarshal([]byte(fixed), &obj); err == nil {
				logger.Info("repaired JSON with llm fix call")
				return obj, StrategyLLMFix, nil
			}
			logger.Warn("llm-repaired JSON is still invalid", "raw", fixed)
		}
	}

	return nil, 0, fmt.Errorf("%w: %s", ErrUnrecoverable, s)
}

// StripFences removes leading/trailing markdown code fences (``` or ```json)
// around a payload, tolerating the model's habit of wrapping JSON in them.
func StripFences(content string) string {
	s := strings.TrimSpace(content)
	for _, marker := range []string{"```json", "```"} {
		if strings.HasPrefix(s, marker) {
			s = s[len(marker):]
			if idx := strings.LastIndex(s, "```"); idx >= 0 {
				s = s[:idx]
			}
			break
		}
	}
	return strings.TrimSpace(s)
}
