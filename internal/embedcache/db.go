package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/teamgrid/ragengine/internal/model"
)

func WrapDB(next Embedder, repo *CacheRepo) Embedder {
	if next == nil || repo == nil {
		return next
	}
	return &dbEmbedder{next: next, repo: repo}
}

type dbEmbedder struct {
	next Embedder
	repo *CacheRepo
}

func (d *dbEmbedder) EmbedModel() string {
	return d.next.EmbedModel()
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, task string) ([]float32, error) {
	vectors, err := d.EmbedBatch(ctx, []string{text}, task)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (d *dbEmbedder) EmbedBatch(ctx context.Context, texts []string, task string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	logger := logutil.GetLogger(ctx)
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		_, contentHash := buildCacheKey(d.next.EmbedModel(), task, text)
		values, ok, err := d.repo.Get(ctx, d.next.EmbedModel(), task, contentHash)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = values
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) < len(texts) {
		logger.Debug("embedding cache hit (db)", zap.Int("hits", len(texts)-len(missing)))
	}
	if len(missing) == 0 {
		return out, nil
	}
	vectors, err := d.next.EmbedBatch(ctx, missing, task)
	if err != nil {
		return nil, err
	}
	for j, vec := range vectors {
		out[missingIdx[j]] = vec
		_, contentHash := buildCacheKey(d.next.EmbedModel(), task, missing[j])
		if err := d.repo.Save(ctx, &model.EmbeddingCache{
			ModelName:   d.next.EmbedModel(),
			TaskType:    task,
			ContentHash: contentHash,
			Embedding:   vec,
			Ctime:       time.Now().Unix(),
		}); err != nil {
			logger.Warn("failed to cache embedding", zap.Error(err))
		}
	}
	return out, nil
}
