package embedding

import (
	"encoding/json"
	"time"

	"docuchat-be/pkg/cache"
)

// CachedProvider decorates an EmbeddingProvider with a byte cache keyed by
// model + task + exact input text. The cache is never authoritative: any miss
// or decode failure falls through to the wrapped provider.
type CachedProvider struct {
	inner EmbeddingProvider
	cache cache.Cache
	model string
	ttl   time.Duration
}

func NewCachedProvider(inner EmbeddingProvider, c cache.Cache, model string, ttl time.Duration) EmbeddingProvider {
	if c == nil {
		c = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedProvider{
		inner: inner,
		cache: c,
		model: model,
		ttl:   ttl,
	}
}

func (p *CachedProvider) Generate(text string, taskType string) (*EmbeddingResponse, error) {
	key := cache.Key(p.model, taskType, text)

	if raw, found := p.cache.Get(key); found {
		var values []float32
		if err := json.Unmarshal(raw, &values); err == nil && len(values) > 0 {
			return &EmbeddingResponse{
				Embedding: EmbeddingResponseEmbedding{Values: values},
			}, nil
		}
	}

	res, err := p.inner.Generate(text, taskType)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(res.Embedding.Values); err == nil {
		p.cache.Set(key, raw, p.ttl)
	}

	return res, nil
}
