package llm

import (
	"context"

	"github.com/PeterSurowski/ai-event-search/cache"
	"github.com/PeterSurowski/ai-event-search/events"
	"github.com/PeterSurowski/ai-event-search/observe"
)

// CachedEmbedder memoizes query embeddings. Only vectors are cached, keyed
// by model and text; nothing about the caller enters the key.
type CachedEmbedder struct {
	next   events.Embedder
	model  string
	keyer  cache.Keyer
	loader *cache.Loader[[]float32]
}

// NewCachedEmbedder wraps next. model must identify the vectors next
// produces so a model change never serves stale vectors.
func NewCachedEmbedder(next events.Embedder, model string, c cache.Cache, policy cache.Policy, logger observe.Logger) *CachedEmbedder {
	if logger == nil {
		logger = observe.NopLogger()
	}
	loader := cache.NewLoader[[]float32](c, policy)
	loader.OnStoreError = func(ctx context.Context, key string, err error) {
		logger.Warn(ctx, "embedding cache write failed", observe.F("key", key), observe.F("error", err.Error()))
	}
	return &CachedEmbedder{
		next:   next,
		model:  model,
		keyer:  cache.NewKeyer("eventsearch"),
		loader: loader,
	}
}

// Embed returns the cached vector for text or computes it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.keyer.Key("emb", c.model, text)
	return c.loader.Load(ctx, key, func(ctx context.Context) ([]float32, error) {
		return c.next.Embed(ctx, text)
	})
}

var (
	_ events.Embedder   = (*Embedder)(nil)
	_ events.Embedder   = (*CachedEmbedder)(nil)
	_ events.Summarizer = (*Summarizer)(nil)
)
