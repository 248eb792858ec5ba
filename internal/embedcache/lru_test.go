package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamgrid/ragengine/internal/ai"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) EmbedModel() string {
	return "test-model"
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, task string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text}, task)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, task string) ([][]float32, error) {
	c.calls += len(texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func TestLRUCachesRepeatedTexts(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLRU(inner, 16, time.Minute)

	ctx := context.Background()
	first, err := cached.Embed(ctx, "hello", ai.TaskTypeDocument)
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)

	second, err := cached.Embed(ctx, "hello", ai.TaskTypeDocument)
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)
	require.Equal(t, first, second)
}

func TestLRUSeparatesTaskTypes(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLRU(inner, 16, time.Minute)

	ctx := context.Background()
	_, err := cached.Embed(ctx, "hello", ai.TaskTypeDocument)
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)

	// Same text as a query must not reuse the document vector.
	_, err = cached.Embed(ctx, "hello", ai.TaskTypeQuery)
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestLRUBatchOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLRU(inner, 16, time.Minute)

	ctx := context.Background()
	_, err := cached.EmbedBatch(ctx, []string{"a", "bb"}, ai.TaskTypeDocument)
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)

	vectors, err := cached.EmbedBatch(ctx, []string{"a", "ccc", "bb"}, ai.TaskTypeDocument)
	require.NoError(t, err)
	require.Equal(t, 3, inner.calls)
	require.Len(t, vectors, 3)
	require.Equal(t, []float32{1, 1}, vectors[0])
	require.Equal(t, []float32{3, 1}, vectors[1])
	require.Equal(t, []float32{2, 1}, vectors[2])
}

func TestWrapLRUDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	require.Equal(t, Embedder(inner), WrapLRU(inner, 0, time.Minute))
	require.Equal(t, Embedder(inner), WrapLRU(inner, 16, 0))
}
