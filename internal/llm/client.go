// Package llm provides the OpenRouter chat-completion client using langchaingo.
//
// OpenRouter exposes an OpenAI-compatible API, so the openai provider is used
// with a custom base URL. Every pipeline stage funnels its model round-trips
// through this client; it is treated everywhere as a slow, failing,
// non-deterministic black box.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/paipi-go/internal/config"
	"github.com/raphaelgruber/paipi-go/internal/metrics"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Role identifies the author of a transcript message.
type Role string

// Transcript roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation transcript.
type Message struct {
	Role    Role
	Content string
}

// Client wraps a langchaingo model for chat completions.
type Client struct {
	llm       llms.Model
	modelName string
	collector *metrics.Collector
	logger    *slog.Logger
}

// New creates an LLM client from configuration. The collector may be nil.
func New(cfg config.Config, collector *metrics.Collector, logger *slog.Logger) (*Client, error) {
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	model, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL(cfg.OpenRouterBaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	return &Client{
		llm:       model,
		modelName: cfg.Model,
		collector: collector,
		logger:    logger,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.modelName
}

// callOptions holds per-call generation settings.
type callOptions struct {
	temperature float64
	maxTokens   int
}

// Option configures a single completion call.
type Option func(*callOptions)

// WithTemperature sets the sampling temperature (0.0 is deterministic).
func WithTemperature(t float64) Option {
	return func(o *callOptions) { o.temperature = t }
}

// WithMaxTokens caps the completion token budget.
func WithMaxTokens(n int) Option {
	return func(o *callOptions) { o.maxTokens = n }
}

// Complete performs a single system+user round trip.
func (c *Client) Complete(ctx context.Context, system, user string, opts ...Option) (string, error) {
	return c.Chat(ctx, []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}, opts...)
}

// Chat sends a full conversation transcript and returns the assistant reply.
// The transcript is owned by the caller and never retained here.
func (c *Client) Chat(ctx context.Context, transcript []Message, opts ...Option) (string, error) {
	o := callOptions{temperature: 0.6, maxTokens: 1000}
	for _, opt := range opts {
		opt(&o)
	}

	content := make([]llms.MessageContent, 0, len(transcript))
	for _, msg := range transcript {
		content = append(content, llms.TextParts(chatMessageType(msg.Role), msg.Content))
	}

	start := time.Now()
	resp, err := c.llm.GenerateContent(ctx, content,
		llms.WithTemperature(o.temperature),
		llms.WithMaxTokens(o.maxTokens),
	)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("llm call failed",
			"model", c.modelName, "turns", len(transcript),
			"duration_ms", duration.Milliseconds(), "error", err)
		return "", wrapFatalError(fmt.Errorf("generate content: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	choice := resp.Choices[0]
	c.record(metrics.OpLLMGenerate, duration, choice)

	c.logger.Debug("raw llm response",
		"model", c.modelName, "duration_ms", duration.Milliseconds(),
		"content", choice.Content)

	return choice.Content, nil
}

// FixJSON asks the model to repair a malformed JSON string. Deterministic
// (zero temperature) with a large token budget, since the broken payload is
// echoed back in full. Implements jsonrepair.Fixer.
func (c *Client) FixJSON(ctx context.Context, broken string) (string, error) {
	system := "You are a JSON repair utility. The user will provide a malformed JSON string. " +
		"Your sole task is to correct any syntax errors (e.g., trailing commas, " +
		"missing brackets, incorrect quoting) and return only the valid, minified JSON object. " +
		"Do not add any commentary, explanations, or markdown fences."

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, broken),
	}

	start := time.Now()
	resp, err := c.llm.GenerateContent(ctx, content,
		llms.WithTemperature(0.0),
		llms.WithMaxTokens(4000),
	)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("llm json fix failed", "duration_ms", duration.Milliseconds(), "error", err)
		return "", wrapFatalError(fmt.Errorf("fix json: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	choice := resp.Choices[0]
	c.record(metrics.OpLLMFix, duration, choice)

	return choice.Content, nil
}

// record reports timing plus token usage when the provider returned it.
func (c *Client) record(op string, duration time.Duration, choice *llms.ContentChoice) {
	if c.collector == nil {
		return
	}
	var inTok, outTok int64
	if choice.GenerationInfo != nil {
		if v, ok := choice.GenerationInfo["PromptTokens"].(int); ok {
			inTok = int64(v)
		}
		if v, ok := choice.GenerationInfo["CompletionTokens"].(int); ok {
			outTok = int64(v)
		}
	}
	c.collector.RecordLLMUsage(op, duration, inTok, outTok)
}

func chatMessageType(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
