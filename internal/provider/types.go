// Package provider implements the AI provider abstraction (spec C1): a
// uniform embedding/chat-completion interface over several backends, with
// credential resolution, rate limiting, and availability probing wired in
// at construction time so callers never see a bare HTTP client.
package provider

import (
	"context"
	"math"
)

// Kind is the closed sum type over supported backends. New backends are
// added here, never by string-tag dispatch at the call site.
type Kind string

const (
	KindOllama    Kind = "ollama"
	KindLMStudio  Kind = "lmstudio"
	KindOpenAI    Kind = "openai"
	KindGemini    Kind = "gemini"
	KindAnthropic Kind = "anthropic"
)

// IsValid reports whether k is one of the known provider kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindOllama, KindLMStudio, KindOpenAI, KindGemini, KindAnthropic:
		return true
	default:
		return false
	}
}

// SupportsEmbedding reports whether a provider kind exposes an embedding
// endpoint. Anthropic is chat-only and must fail fast at index time rather
// than surface a confusing HTTP 404 deep in the embedding path.
func (k Kind) SupportsEmbedding() bool {
	return k != KindAnthropic
}

// RateLimit bounds outbound calls to one provider instance.
type RateLimit struct {
	RequestsPerMinute int
	Concurrency       int
}

// Config is the in-memory description of one AI backend (spec §3
// ProviderConfig). APIKeyRef, when set, is a "${NAME}" template — the
// literal template, never a resolved secret. New resolves it once, when the
// provider is constructed; the provider keeps that secret and does not
// resolve the reference again on later calls.
type Config struct {
	Kind           Kind
	EmbeddingModel string
	LLMModel       string
	BaseURL        string
	APIKeyRef      string
	RateLimit      *RateLimit
}

// Role identifies the speaker of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in a chat completion request.
type Message struct {
	Role    Role
	Content string
}

// CompletionResult is the outcome of a non-streaming Complete call.
type CompletionResult struct {
	Content string
}

// CheckResult is the outcome of an availability probe.
type CheckResult struct {
	Available bool
	Reason    string
	Dimension int
}

// Provider is the capability interface every backend satisfies (spec
// §4.2). Embed is on the hot indexing/search path; Complete is only used
// for description validation and interactive chat.
type Provider interface {
	// Embed returns one L2-normalized vector per input text, in the
	// same order as texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Complete runs a single non-streaming chat completion.
	Complete(ctx context.Context, messages []Message, temperature float64) (CompletionResult, error)

	// Check probes availability by embedding the literal string "probe"
	// once and reporting the resulting vector length.
	Check(ctx context.Context) CheckResult

	// Close releases any held connections.
	Close() error
}

// ProbeText is the fixed input used for dimension probing (spec §4.6, §4.2).
const ProbeText = "probe"

// normalize returns v scaled to unit L2 norm. A zero vector is returned
// unchanged — there is no direction to normalize toward.
func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / magnitude)
	}
	return out
}
