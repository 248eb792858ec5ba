package vectorstore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teamgrid/ragengine/internal/model"
)

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	require.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	require.InDelta(t, math.Sqrt2/2, cosineSimilarity([]float32{1, 0}, []float32{1, 1}), 1e-6)
}

func TestCosineSimilarityDegenerate(t *testing.T) {
	require.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	require.Equal(t, 0.0, cosineSimilarity([]float32{1, 1}, []float32{0, 0}))
	require.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 1}))
	require.Equal(t, 0.0, cosineSimilarity(nil, nil))
}

func record(id string, ctime int64, embedding []float32) model.EmbeddingRecord {
	return model.EmbeddingRecord{
		ID:        id,
		Content:   "content " + id,
		Embedding: embedding,
		Ctime:     ctime,
	}
}

func TestRankOrdersBySimilarity(t *testing.T) {
	query := []float32{1, 0}
	candidates := []model.EmbeddingRecord{
		record("far", 1, []float32{0.6, 0.8}),
		record("exact", 1, []float32{2, 0}),
		record("close", 1, []float32{1, 0.2}),
	}
	results := rank(query, candidates, SearchOptions{Limit: 10, MinSimilarity: 0.5})
	require.Len(t, results, 3)
	require.Equal(t, "exact", results[0].ID)
	require.Equal(t, "close", results[1].ID)
	require.Equal(t, "far", results[2].ID)
}

func TestRankFiltersBelowFloor(t *testing.T) {
	query := []float32{1, 0}
	candidates := []model.EmbeddingRecord{
		record("keep", 1, []float32{1, 0}),
		record("drop", 1, []float32{0, 1}),
	}
	results := rank(query, candidates, SearchOptions{Limit: 10, MinSimilarity: 0.7})
	require.Len(t, results, 1)
	require.Equal(t, "keep", results[0].ID)
}

func TestRankTieBreaksNewestFirst(t *testing.T) {
	query := []float32{1, 0}
	candidates := []model.EmbeddingRecord{
		record("old", 100, []float32{1, 0}),
		record("new", 200, []float32{1, 0}),
	}
	results := rank(query, candidates, SearchOptions{Limit: 10, MinSimilarity: 0.5})
	require.Len(t, results, 2)
	require.Equal(t, "new", results[0].ID)
	require.Equal(t, "old", results[1].ID)
}

func TestRankFullTiesKeepCandidateOrder(t *testing.T) {
	query := []float32{1, 0}
	candidates := []model.EmbeddingRecord{
		record("first", 100, []float32{1, 0}),
		record("second", 100, []float32{2, 0}),
		record("third", 100, []float32{3, 0}),
	}
	results := rank(query, candidates, SearchOptions{Limit: 10, MinSimilarity: 0.5})
	require.Len(t, results, 3)
	require.Equal(t, "first", results[0].ID)
	require.Equal(t, "second", results[1].ID)
	require.Equal(t, "third", results[2].ID)
}

func TestRankAppliesLimit(t *testing.T) {
	query := []float32{1, 0}
	var candidates []model.EmbeddingRecord
	for i := 0; i < 25; i++ {
		candidates = append(candidates, record("r", int64(i), []float32{1, 0}))
	}
	results := rank(query, candidates, SearchOptions{}.withDefaults())
	require.Len(t, results, DefaultSearchLimit)
}

func TestRankSkipsRecordsWithoutEmbedding(t *testing.T) {
	query := []float32{1, 0}
	candidates := []model.EmbeddingRecord{
		record("empty", 1, nil),
		record("ok", 1, []float32{1, 0}),
	}
	results := rank(query, candidates, SearchOptions{Limit: 10, MinSimilarity: 0.1})
	require.Len(t, results, 1)
	require.Equal(t, "ok", results[0].ID)
}
