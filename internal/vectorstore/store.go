package vectorstore

import (
	"context"
	"math"
	"sort"

	"github.com/teamgrid/ragengine/internal/model"
)

const (
	DefaultSearchLimit   = 10
	DefaultMinSimilarity = 0.7
)

// SearchOptions scope a similarity search. All set filters are combined
// with AND.
type SearchOptions struct {
	NamespaceID   string
	NamespaceIDs  []string
	NamespaceType string
	OrgID         string
	SourceTypes   []string
	Limit         int
	MinSimilarity float64
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultSearchLimit
	}
	if o.MinSimilarity <= 0 {
		o.MinSimilarity = DefaultMinSimilarity
	}
	return o
}

type Store interface {
	Insert(ctx context.Context, records []*model.EmbeddingRecord) error
	DeleteBySource(ctx context.Context, sourceType, sourceID string) (int64, error)
	DeleteByNamespace(ctx context.Context, namespaceID string) (int64, error)
	ExistsForSource(ctx context.Context, sourceType, sourceID string) (bool, error)
	Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]model.SearchResult, error)
	Stats(ctx context.Context, namespaceID string) (*model.NamespaceStats, error)
	ListMissingEmbeddings(ctx context.Context, limit int) ([]model.EmbeddingRecord, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rank scores candidates against the query vector, drops everything under
// the similarity floor and returns the top results, newest first on ties.
func rank(query []float32, candidates []model.EmbeddingRecord, opts SearchOptions) []model.SearchResult {
	var results []model.SearchResult
	for _, record := range candidates {
		if len(record.Embedding) == 0 {
			continue
		}
		similarity := cosineSimilarity(query, record.Embedding)
		if similarity < opts.MinSimilarity {
			continue
		}
		results = append(results, model.SearchResult{
			EmbeddingRecord: record,
			Similarity:      similarity,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Ctime > results[j].Ctime
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}
