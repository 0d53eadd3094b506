package jsonrepair

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// stubFixer returns a canned response or error for the model-repair step.
type stubFixer struct {
	reply string
	err   error
	calls int
}

func (f *stubFixer) FixJSON(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func TestRepairValidJSONRoundTrips(t *testing.T) {
	raw := `{"results":[{"name":"requests","version":"2.31.0"}]}`

	obj, strategy, err := Repair(context.Background(), raw, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategy != StrategyDirect {
		t.Errorf("expected direct parse, got %v", strategy)
	}
	results, ok := obj["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("results not preserved: %#v", obj)
	}
}

func TestRepairStripsFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n{\"a\": 1}\n```"},
		{"bare fence", "```\n{\"a\": 1}\n```"},
		{"no fence", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, strategy, err := Repair(context.Background(), tt.raw, nil, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strategy != StrategyDirect {
				t.Errorf("expected direct parse, got %v", strategy)
			}
			if obj["a"] != float64(1) {
				t.Errorf("unexpected object: %#v", obj)
			}
		})
	}
}

func TestRepairTruncatedMidArray(t *testing.T) {
	// Cut off mid-generation, as when the token budget runs out.
	raw := `{"results":[{"name":"x"`

	obj, strategy, err := Repair(context.Background(), raw, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategy != StrategyUntruncate {
		t.Errorf("expected untruncate strategy, got %v", strategy)
	}
	results, ok := obj["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("leading entry not recovered: %#v", obj)
	}
	entry := results[0].(map[string]any)
	if entry["name"] != "x" {
		t.Errorf("expected name x, got %#v", entry)
	}
}

func TestRepairUsesFixerAsLastResort(t *testing.T) {
	fixer := &stubFixer{reply: "```json\n{\"fixed\": true}\n```"}
	raw := `{"fixed": tru<oops>`

	obj, strategy, err := Repair(context.Background(), raw, fixer, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategy != StrategyLLMFix {
		t.Errorf("expected llm fix strategy, got %v", strategy)
	}
	if fixer.calls != 1 {
		t.Errorf("expected exactly one fixer call, got %d", fixer.calls)
	}
	if obj["fixed"] != true {
		t.Errorf("unexpected object: %#v", obj)
	}
}

func TestRepairExhaustionFailsLoudly(t *testing.T) {
	tests := []struct {
		name  string
		fixer Fixer
	}{
		{"no fixer", nil},
		{"fixer errors", &stubFixer{err: fmt.Errorf("rate limited")}},
		{"fixer returns garbage", &stubFixer{reply: "sorry, I cannot help with that"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Repair(context.Background(), "not json at all {{{[", tt.fixer, nil)
			if !errors.Is(err, ErrUnrecoverable) {
				t.Fatalf("expected ErrUnrecoverable, got %v", err)
			}
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n[1,2]\n```", "[1,2]"},
		{"unfenced", `  {"a":1}  `, `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripFences(tt.in)
			if got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompleteTruncated(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"balanced unchanged", `{"a":1}`, `{"a":1}`},
		{"open object", `{"a":1`, `{"a":1}`},
		{"open array in object", `{"results":[{"name":"x"`, `{"results":[{"name":"x"}]}`},
		{"unterminated string", `{"a":"hel`, `{"a":"hel"}`},
		{"dangling key", `{"a":1,"b"`, `{"a":1,"b":null}`},
		{"dangling colon", `{"a":`, `{"a":null}`},
		{"trailing comma", `[1,2,`, `[1,2]`},
		{"partial true", `{"a":tr`, `{"a":true}`},
		{"partial null", `{"a":nu`, `{"a":null}`},
		{"hanging exponent", `{"a":1.5e`, `{"a":1.5e0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompleteTruncated(tt.in)
			if got != tt.want {
				t.Errorf("CompleteTruncated(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
