package provider

import (
	"context"
	"fmt"
	"strings"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
	"google.golang.org/genai"
)

// geminiProvider wraps the official google.golang.org/genai client.
type geminiProvider struct {
	client         *genai.Client
	embeddingModel string
	llmModel       string
	gate           *gate
}

var _ Provider = (*geminiProvider)(nil)

func newGeminiProvider(ctx context.Context, cfg Config, apiKey string) (*geminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, minerrors.ProviderUnavailable("failed to construct gemini client", err)
	}
	return &geminiProvider{
		client:         client,
		embeddingModel: cfg.EmbeddingModel,
		llmModel:       cfg.LLMModel,
		gate:           newGate(cfg.RateLimit),
	}, nil
}

func (p *geminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	release, err := p.gate.acquire(ctx)
	if err != nil {
		return nil, minerrors.RateLimited("rate limit gate cancelled", err)
	}
	defer release()

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.embeddingModel, contents, nil)
	if err != nil {
		return nil, minerrors.ProviderErr("gemini embedding request failed", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, minerrors.ProviderErr("gemini returned an unexpected embedding count", nil)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, minerrors.ProviderErr(fmt.Sprintf("gemini returned no embedding for input %d", i), nil)
		}
		out[i] = normalize(emb.Values)
	}
	return out, nil
}

func (p *geminiProvider) Complete(ctx context.Context, messages []Message, temperature float64) (CompletionResult, error) {
	release, err := p.gate.acquire(ctx)
	if err != nil {
		return CompletionResult{}, minerrors.RateLimited("rate limit gate cancelled", err)
	}
	defer release()

	var systemPrompt string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch strings.ToLower(string(m.Role)) {
		case "system":
			if systemPrompt != "" {
				systemPrompt += "\n"
			}
			systemPrompt += m.Content
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(float32(temperature))}
	if systemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.llmModel, contents, cfg)
	if err != nil {
		return CompletionResult{}, minerrors.ProviderErr("gemini chat completion failed", err)
	}
	if resp == nil {
		return CompletionResult{}, minerrors.ProviderErr("gemini returned an empty response", nil)
	}
	return CompletionResult{Content: resp.Text()}, nil
}

func (p *geminiProvider) Check(ctx context.Context) CheckResult {
	vecs, err := p.Embed(ctx, []string{ProbeText})
	if err != nil {
		return CheckResult{Available: false, Reason: err.Error()}
	}
	if len(vecs) == 0 {
		return CheckResult{Available: false, Reason: "gemini returned no embedding for probe"}
	}
	return CheckResult{Available: true, Dimension: len(vecs[0])}
}

func (p *geminiProvider) Close() error { return nil }
