package provider

import (
	"context"
	"fmt"
	"strings"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
	openaiSDK "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiProvider wraps the official OpenAI SDK. Credential resolution has
// already happened by the time Config.APIKeyRef's secret reaches here —
// this type never sees a "${NAME}" template.
type openaiProvider struct {
	client         openaiSDK.Client
	embeddingModel string
	llmModel       string
	gate           *gate
}

var _ Provider = (*openaiProvider)(nil)

func newOpenAIProvider(cfg Config, apiKey string) *openaiProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiProvider{
		client:         openaiSDK.NewClient(opts...),
		embeddingModel: cfg.EmbeddingModel,
		llmModel:       cfg.LLMModel,
		gate:           newGate(cfg.RateLimit),
	}
}

func (p *openaiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	release, err := p.gate.acquire(ctx)
	if err != nil {
		return nil, minerrors.RateLimited("rate limit gate cancelled", err)
	}
	defer release()

	params := openaiSDK.EmbeddingNewParams{
		Model: openaiSDK.EmbeddingModel(p.embeddingModel),
		Input: openaiSDK.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, minerrors.ProviderErr("openai embedding request failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, minerrors.ProviderErr(
			fmt.Sprintf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts)), nil)
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		v := make([]float32, len(d.Embedding))
		for j, x := range d.Embedding {
			v[j] = float32(x)
		}
		out[i] = normalize(v)
	}
	return out, nil
}

func (p *openaiProvider) Complete(ctx context.Context, messages []Message, temperature float64) (CompletionResult, error) {
	release, err := p.gate.acquire(ctx)
	if err != nil {
		return CompletionResult{}, minerrors.RateLimited("rate limit gate cancelled", err)
	}
	defer release()

	msgs := make([]openaiSDK.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, toOpenAIMessage(m))
	}

	params := openaiSDK.ChatCompletionNewParams{
		Messages:    msgs,
		Model:       p.llmModel,
		Temperature: openaiSDK.Float(temperature),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return CompletionResult{}, minerrors.ProviderErr("openai chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResult{}, minerrors.ProviderErr("openai returned no choices", nil)
	}
	return CompletionResult{Content: resp.Choices[0].Message.Content}, nil
}

func (p *openaiProvider) Check(ctx context.Context) CheckResult {
	vecs, err := p.Embed(ctx, []string{ProbeText})
	if err != nil {
		return CheckResult{Available: false, Reason: err.Error()}
	}
	if len(vecs) == 0 {
		return CheckResult{Available: false, Reason: "openai returned no embedding for probe"}
	}
	return CheckResult{Available: true, Dimension: len(vecs[0])}
}

func (p *openaiProvider) Close() error { return nil }

func toOpenAIMessage(m Message) openaiSDK.ChatCompletionMessageParamUnion {
	switch strings.ToLower(string(m.Role)) {
	case "system":
		return openaiSDK.SystemMessage(m.Content)
	case "assistant":
		return openaiSDK.AssistantMessage(m.Content)
	default:
		return openaiSDK.UserMessage(m.Content)
	}
}
