package provider

import (
	"context"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
)

// Resolver resolves a "${NAME}" credential reference to a secret. Defined
// here (rather than importing internal/credential directly) so provider
// stays independent of the credential package's keychain dependency in
// tests that only need a stub.
type Resolver interface {
	Resolve(reference string) (string, error)
}

// New constructs a Provider for cfg, resolving cfg.APIKeyRef through
// resolver exactly once at construction time (spec §9: centralize
// credential resolution at exactly one point, just before use) and
// wrapping the result with query-embedding caching.
func New(ctx context.Context, cfg Config, resolver Resolver) (Provider, error) {
	if !cfg.Kind.IsValid() {
		return nil, minerrors.ConfigError("unknown provider type "+string(cfg.Kind), nil)
	}

	var p Provider
	switch cfg.Kind {
	case KindOllama:
		p = newOllamaProvider(cfg)

	case KindLMStudio:
		p = newLMStudioProvider(cfg)

	case KindOpenAI:
		key, err := resolveKey(resolver, cfg)
		if err != nil {
			return nil, err
		}
		p = newOpenAIProvider(cfg, key)

	case KindGemini:
		key, err := resolveKey(resolver, cfg)
		if err != nil {
			return nil, err
		}
		gp, err := newGeminiProvider(ctx, cfg, key)
		if err != nil {
			return nil, err
		}
		p = gp

	case KindAnthropic:
		key, err := resolveKey(resolver, cfg)
		if err != nil {
			return nil, err
		}
		p = newAnthropicProvider(cfg, key)
	}

	return withQueryCache(p, cfg.EmbeddingModel), nil
}

func resolveKey(resolver Resolver, cfg Config) (string, error) {
	if cfg.APIKeyRef == "" {
		return "", minerrors.CredentialMissing(
			"provider "+string(cfg.Kind)+" requires an api_key_ref", nil)
	}
	key, err := resolver.Resolve(cfg.APIKeyRef)
	if err != nil {
		return "", err
	}
	return key, nil
}
