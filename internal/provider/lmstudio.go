package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
)

const defaultLMStudioHost = "http://localhost:1234"

// lmstudioProvider talks to a local LM Studio server, which exposes an
// OpenAI-compatible REST surface (/v1/embeddings, /v1/chat/completions)
// with no API key required.
type lmstudioProvider struct {
	client    *http.Client
	transport *http.Transport
	baseURL   string
	model     string
	llmModel  string
	gate      *gate
	retryCfg  minerrors.RetryConfig
}

var _ Provider = (*lmstudioProvider)(nil)

func newLMStudioProvider(cfg Config) *lmstudioProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultLMStudioHost
	}
	transport := &http.Transport{
		MaxIdleConns:        ollamaPoolSize,
		MaxIdleConnsPerHost: ollamaPoolSize,
		IdleConnTimeout:     ollamaIdleConnExpiry,
	}
	retryCfg := minerrors.DefaultRetryConfig()
	retryCfg.MaxRetries = 2

	return &lmstudioProvider{
		client:    &http.Client{Transport: transport},
		transport: transport,
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     cfg.EmbeddingModel,
		llmModel:  cfg.LLMModel,
		gate:      newGate(cfg.RateLimit),
		retryCfg:  retryCfg,
	}
}

type lmstudioEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type lmstudioEmbedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (p *lmstudioProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	release, err := p.gate.acquire(ctx)
	if err != nil {
		return nil, minerrors.RateLimited("rate limit gate cancelled", err)
	}
	defer release()

	body, err := json.Marshal(lmstudioEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, minerrors.InternalError("failed to marshal lmstudio embed request", err)
	}

	var result lmstudioEmbedResponse
	doReq := func() error {
		timeoutCtx, cancel := context.WithTimeout(ctx, defaultWarmTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, p.baseURL+"/v1/embeddings", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("lmstudio embed failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	}

	if err := minerrors.Retry(ctx, p.retryCfg, doReq); err != nil {
		return nil, minerrors.ProviderErr("lmstudio embedding request failed", err)
	}
	if len(result.Data) != len(texts) {
		return nil, minerrors.ProviderErr(
			fmt.Sprintf("lmstudio returned %d embeddings for %d inputs", len(result.Data), len(texts)), nil)
	}

	out := make([][]float32, len(result.Data))
	for i, d := range result.Data {
		v := make([]float32, len(d.Embedding))
		for j, x := range d.Embedding {
			v[j] = float32(x)
		}
		out[i] = normalize(v)
	}
	return out, nil
}

type lmstudioChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type lmstudioChatRequest struct {
	Model       string                `json:"model"`
	Messages    []lmstudioChatMessage `json:"messages"`
	Temperature float64               `json:"temperature"`
	Stream      bool                  `json:"stream"`
}

type lmstudioChatResponse struct {
	Choices []struct {
		Message lmstudioChatMessage `json:"message"`
	} `json:"choices"`
}

func (p *lmstudioProvider) Complete(ctx context.Context, messages []Message, temperature float64) (CompletionResult, error) {
	release, err := p.gate.acquire(ctx)
	if err != nil {
		return CompletionResult{}, minerrors.RateLimited("rate limit gate cancelled", err)
	}
	defer release()

	msgs := make([]lmstudioChatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = lmstudioChatMessage{Role: string(m.Role), Content: m.Content}
	}
	body, err := json.Marshal(lmstudioChatRequest{
		Model:       p.llmModel,
		Messages:    msgs,
		Temperature: temperature,
		Stream:      false,
	})
	if err != nil {
		return CompletionResult{}, minerrors.InternalError("failed to marshal lmstudio chat request", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, defaultColdTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return CompletionResult{}, minerrors.InternalError("failed to build lmstudio chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return CompletionResult{}, minerrors.ProviderErr("lmstudio chat request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return CompletionResult{}, minerrors.ProviderErr(
			fmt.Sprintf("lmstudio chat failed with status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var result lmstudioChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return CompletionResult{}, minerrors.ProviderErr("failed to decode lmstudio chat response", err)
	}
	if len(result.Choices) == 0 {
		return CompletionResult{}, minerrors.ProviderErr("lmstudio returned no choices", nil)
	}
	return CompletionResult{Content: result.Choices[0].Message.Content}, nil
}

func (p *lmstudioProvider) Check(ctx context.Context) CheckResult {
	vecs, err := p.Embed(ctx, []string{ProbeText})
	if err != nil {
		return CheckResult{Available: false, Reason: fmt.Sprintf("cannot reach %s: %v", p.baseURL, err)}
	}
	if len(vecs) == 0 {
		return CheckResult{Available: false, Reason: "lmstudio returned no embedding for probe"}
	}
	return CheckResult{Available: true, Dimension: len(vecs[0])}
}

func (p *lmstudioProvider) Close() error {
	p.transport.CloseIdleConnections()
	return nil
}
