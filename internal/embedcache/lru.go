package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

func WrapLRU(next Embedder, size int, ttl time.Duration) Embedder {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruEmbedder{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  Embedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) EmbedModel() string {
	return l.next.EmbedModel()
}

func (l *lruEmbedder) Embed(ctx context.Context, text string, task string) ([]float32, error) {
	vectors, err := l.EmbedBatch(ctx, []string{text}, task)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (l *lruEmbedder) EmbedBatch(ctx context.Context, texts []string, task string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	hits := 0
	for i, text := range texts {
		key, _ := buildCacheKey(l.next.EmbedModel(), task, text)
		if cached, ok := l.cache.Get(key); ok {
			out[i] = cloneEmbedding(cached)
			hits++
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if hits > 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)", zap.Int("hits", hits), zap.Int("misses", len(missing)))
	}
	if len(missing) == 0 {
		return out, nil
	}
	vectors, err := l.next.EmbedBatch(ctx, missing, task)
	if err != nil {
		return nil, err
	}
	for j, vec := range vectors {
		out[missingIdx[j]] = vec
		key, _ := buildCacheKey(l.next.EmbedModel(), task, missing[j])
		l.cache.Add(key, cloneEmbedding(vec))
	}
	return out, nil
}
