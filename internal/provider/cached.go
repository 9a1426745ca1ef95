package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultQueryCacheSize caps the query-embedding cache at 768 dims * 4
// bytes * 1000 entries, roughly 3MB — generous for a single-user process.
const defaultQueryCacheSize = 1000

// cachedProvider wraps a Provider with an LRU cache keyed on (model, text),
// so repeated search queries against the same collection skip the network
// round trip entirely. Only Embed is cached — Complete calls are never
// repeated verbatim often enough to be worth keying.
type cachedProvider struct {
	inner Provider
	model string
	cache *lru.Cache[string, []float32]
}

var _ Provider = (*cachedProvider)(nil)

// withQueryCache wraps inner with query-embedding caching.
func withQueryCache(inner Provider, model string) Provider {
	cache, _ := lru.New[string, []float32](defaultQueryCacheSize)
	return &cachedProvider{inner: inner, model: model, cache: cache}
}

func (c *cachedProvider) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (c *cachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.cacheKey(text)); ok {
			results[i] = vec
		} else {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
		}
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	fresh, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		results[idx] = fresh[j]
		c.cache.Add(c.cacheKey(texts[idx]), fresh[j])
	}
	return results, nil
}

func (c *cachedProvider) Complete(ctx context.Context, messages []Message, temperature float64) (CompletionResult, error) {
	return c.inner.Complete(ctx, messages, temperature)
}

func (c *cachedProvider) Check(ctx context.Context) CheckResult {
	return c.inner.Check(ctx)
}

func (c *cachedProvider) Close() error {
	return c.inner.Close()
}
