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

const (
	defaultOllamaHost    = "http://localhost:11434"
	defaultWarmTimeout   = 30 * time.Second
	defaultColdTimeout   = 90 * time.Second
	ollamaPoolSize       = 4
	ollamaIdleConnExpiry = 10 * time.Second
)

// ollamaProvider talks to a local Ollama instance over its HTTP API. It has
// no API key: baseURL is the only configuration.
type ollamaProvider struct {
	client    *http.Client
	transport *http.Transport
	baseURL   string
	model     string
	llmModel  string
	gate      *gate
	retryCfg  minerrors.RetryConfig
}

var _ Provider = (*ollamaProvider)(nil)

func newOllamaProvider(cfg Config) *ollamaProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaHost
	}
	transport := &http.Transport{
		MaxIdleConns:        ollamaPoolSize,
		MaxIdleConnsPerHost: ollamaPoolSize,
		MaxConnsPerHost:     ollamaPoolSize * 2,
		IdleConnTimeout:     ollamaIdleConnExpiry,
	}
	retryCfg := minerrors.DefaultRetryConfig()
	retryCfg.MaxRetries = 2 // spec §4.2: embedding retries bounded to <= 3 attempts total

	return &ollamaProvider{
		client:    &http.Client{Transport: transport},
		transport: transport,
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     cfg.EmbeddingModel,
		llmModel:  cfg.LLMModel,
		gate:      newGate(cfg.RateLimit),
		retryCfg:  retryCfg,
	}
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (p *ollamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	release, err := p.gate.acquire(ctx)
	if err != nil {
		return nil, minerrors.RateLimited("rate limit gate cancelled", err)
	}
	defer release()

	var input any = texts
	if len(texts) == 1 {
		input = texts[0]
	}
	reqBody := ollamaEmbedRequest{Model: p.model, Input: input}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, minerrors.InternalError("failed to marshal ollama embed request", err)
	}

	var result ollamaEmbedResponse
	doReq := func() error {
		timeoutCtx, cancel := context.WithTimeout(ctx, defaultWarmTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(body))
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
			return fmt.Errorf("ollama embed failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	}

	if err := minerrors.Retry(ctx, p.retryCfg, doReq); err != nil {
		return nil, minerrors.ProviderErr("ollama embedding request failed", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, minerrors.ProviderErr(
			fmt.Sprintf("ollama returned %d embeddings for %d inputs", len(result.Embeddings), len(texts)), nil)
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		v := make([]float32, len(emb))
		for j, x := range emb {
			v[j] = float32(x)
		}
		out[i] = normalize(v)
	}
	return out, nil
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]float64  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

func (p *ollamaProvider) Complete(ctx context.Context, messages []Message, temperature float64) (CompletionResult, error) {
	release, err := p.gate.acquire(ctx)
	if err != nil {
		return CompletionResult{}, minerrors.RateLimited("rate limit gate cancelled", err)
	}
	defer release()

	msgs := make([]ollamaChatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = ollamaChatMessage{Role: string(m.Role), Content: m.Content}
	}
	reqBody := ollamaChatRequest{
		Model:    p.llmModel,
		Messages: msgs,
		Stream:   false,
		Options:  map[string]float64{"temperature": temperature},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return CompletionResult{}, minerrors.InternalError("failed to marshal ollama chat request", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, defaultColdTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return CompletionResult{}, minerrors.InternalError("failed to build ollama chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return CompletionResult{}, minerrors.ProviderErr("ollama chat request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return CompletionResult{}, minerrors.ProviderErr(
			fmt.Sprintf("ollama chat failed with status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return CompletionResult{}, minerrors.ProviderErr("failed to decode ollama chat response", err)
	}
	return CompletionResult{Content: result.Message.Content}, nil
}

func (p *ollamaProvider) Check(ctx context.Context) CheckResult {
	vecs, err := p.Embed(ctx, []string{ProbeText})
	if err != nil {
		return CheckResult{Available: false, Reason: fmt.Sprintf("cannot reach %s: %v", p.baseURL, err)}
	}
	if len(vecs) == 0 {
		return CheckResult{Available: false, Reason: "ollama returned no embedding for probe"}
	}
	return CheckResult{Available: true, Dimension: len(vecs[0])}
}

func (p *ollamaProvider) Close() error {
	p.transport.CloseIdleConnections()
	return nil
}
