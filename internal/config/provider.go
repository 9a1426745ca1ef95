// Package config loads and validates the three JSON config shapes spec
// §4.10 defines (index, server, chat). Each loader is idempotent: given
// the same file it returns the same fully-resolved object, or a
// ConfigError naming the offending field path.
package config

import (
	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
	"github.com/michele-orsini-71/minerva/internal/provider"
)

// RateLimitConfig is the JSON shape of provider.RateLimit.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute,omitempty"`
	Concurrency       int `json:"concurrency,omitempty"`
}

// ProviderConfig is the JSON shape embedded in index/chat configs.
// APIKeyRef travels through unresolved — the credential store resolves
// "${NAME}" references at call time, never at load time (spec §4.10).
type ProviderConfig struct {
	Kind           string           `json:"kind"`
	EmbeddingModel string           `json:"embedding_model,omitempty"`
	LLMModel       string           `json:"llm_model,omitempty"`
	BaseURL        string           `json:"base_url,omitempty"`
	APIKeyRef      string           `json:"api_key_ref,omitempty"`
	RateLimit      *RateLimitConfig `json:"rate_limit,omitempty"`
}

// ToProviderConfig converts the JSON shape into provider.Config, the
// type internal/provider.New consumes.
func (p ProviderConfig) ToProviderConfig() provider.Config {
	cfg := provider.Config{
		Kind:           provider.Kind(p.Kind),
		EmbeddingModel: p.EmbeddingModel,
		LLMModel:       p.LLMModel,
		BaseURL:        p.BaseURL,
		APIKeyRef:      p.APIKeyRef,
	}
	if p.RateLimit != nil {
		cfg.RateLimit = &provider.RateLimit{
			RequestsPerMinute: p.RateLimit.RequestsPerMinute,
			Concurrency:       p.RateLimit.Concurrency,
		}
	}
	return cfg
}

func validateProvider(field string, p ProviderConfig) error {
	if p.Kind == "" {
		return minerrors.ConfigError(field+".kind is required", nil).
			WithDetail("field", field+".kind")
	}
	if !provider.Kind(p.Kind).IsValid() {
		return minerrors.ConfigError(field+".kind is not a known provider", nil).
			WithDetail("field", field+".kind").
			WithDetail("value", p.Kind)
	}
	return nil
}
