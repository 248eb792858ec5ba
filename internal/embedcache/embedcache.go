package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Embedder is the surface the caches decorate. ai.Client satisfies it.
// The task type separates document vectors from query vectors: providers
// may embed the two differently, so cached entries never cross over.
type Embedder interface {
	Embed(ctx context.Context, text string, task string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, task string) ([][]float32, error)
	EmbedModel() string
}

func buildCacheKey(modelName, task, text string) (string, string) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return "embed:" + modelName + ":" + task + ":" + contentHash, contentHash
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
