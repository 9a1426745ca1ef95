package provider

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
)

const anthropicDefaultMaxTokens = 4096

// anthropicProvider wraps the official Anthropic SDK. Anthropic exposes no
// embedding endpoint (spec §4.2) — Embed always fails, by design, so a
// misconfigured index run surfaces the mistake immediately instead of
// taking a confusing detour through an HTTP 404.
type anthropicProvider struct {
	client   anthropic.Client
	llmModel string
	gate     *gate
}

var _ Provider = (*anthropicProvider)(nil)

func newAnthropicProvider(cfg Config, apiKey string) *anthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicProvider{
		client:   anthropic.NewClient(opts...),
		llmModel: cfg.LLMModel,
		gate:     newGate(cfg.RateLimit),
	}
}

func (p *anthropicProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, minerrors.ProviderErr("anthropic is chat-only and exposes no embedding endpoint", nil)
}

func (p *anthropicProvider) Complete(ctx context.Context, messages []Message, temperature float64) (CompletionResult, error) {
	release, err := p.gate.acquire(ctx)
	if err != nil {
		return CompletionResult{}, minerrors.RateLimited("rate limit gate cancelled", err)
	}
	defer release()

	var systemPrompt string
	msgs := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if systemPrompt != "" {
				systemPrompt += "\n"
			}
			systemPrompt += m.Content
			continue
		}
		msgs = append(msgs, toAnthropicMessage(m))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.llmModel),
		MaxTokens: anthropicDefaultMaxTokens,
		Messages:  msgs,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return CompletionResult{}, minerrors.ProviderErr("anthropic chat completion failed", err)
	}

	var sb strings.Builder
	for _, b := range msg.Content {
		if tb, ok := b.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return CompletionResult{Content: sb.String()}, nil
}

// Check probes by embedding ProbeText, like every other backend. Embed
// always fails here, so an anthropic provider never reports itself available.
func (p *anthropicProvider) Check(ctx context.Context) CheckResult {
	_, err := p.Embed(ctx, []string{ProbeText})
	if err != nil {
		return CheckResult{Available: false, Reason: err.Error()}
	}
	return CheckResult{Available: true}
}

func (p *anthropicProvider) Close() error { return nil }

func toAnthropicMessage(m Message) anthropic.MessageParam {
	role := anthropic.MessageParamRoleUser
	if m.Role == RoleAssistant {
		role = anthropic.MessageParamRoleAssistant
	}
	return anthropic.MessageParam{
		Role: role,
		Content: []anthropic.ContentBlockParamUnion{
			{OfText: &anthropic.TextBlockParam{Text: m.Content}},
		},
	}
}
