package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/teamgrid/ragengine/internal/ai"
	"github.com/teamgrid/ragengine/internal/chunker"
	"github.com/teamgrid/ragengine/internal/embedcache"
	"github.com/teamgrid/ragengine/internal/model"
	"github.com/teamgrid/ragengine/internal/pkg/errors"
	"github.com/teamgrid/ragengine/internal/processor"
	"github.com/teamgrid/ragengine/internal/vectorstore"
)

type IndexRequest struct {
	NamespaceID   string
	NamespaceType string
	OrgID         string
	SourceType    string
	SourceID      string
	Content       string
	Metadata      map[string]interface{}
	// ChunkSize overrides the service default when positive. A non-nil
	// Overlap overrides it too, and an explicit zero disables overlap.
	ChunkSize int
	Overlap   *int
}

type IndexResult struct {
	ChunksCreated int    `json:"chunks_created"`
	Message       string `json:"message,omitempty"`
}

type IndexingService struct {
	store      vectorstore.Store
	embedder   embedcache.Embedder
	chunker    *chunker.Chunker
	registry   *processor.Registry
	deferEmbed bool
	sourceMu   sync.Mutex
	sourceSet  map[string]*sync.Mutex
}

func NewIndexingService(store vectorstore.Store, embedder embedcache.Embedder, ch *chunker.Chunker, registry *processor.Registry) *IndexingService {
	return &IndexingService{
		store:     store,
		embedder:  embedder,
		chunker:   ch,
		registry:  registry,
		sourceSet: map[string]*sync.Mutex{},
	}
}

// DeferEmbedFailure makes IndexContent persist chunks without vectors when
// the embedding provider fails, instead of failing the request. The
// backfill job embeds them later.
func (s *IndexingService) DeferEmbedFailure(enable bool) {
	s.deferEmbed = enable
}

// lockSource serializes indexing per (sourceType, sourceId) so concurrent
// re-indexes of the same source cannot interleave delete and insert.
func (s *IndexingService) lockSource(sourceType, sourceID string) func() {
	key := sourceType + ":" + sourceID
	s.sourceMu.Lock()
	mu, ok := s.sourceSet[key]
	if !ok {
		mu = &sync.Mutex{}
		s.sourceSet[key] = mu
	}
	s.sourceMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// requestChunker returns the default chunker unless the request overrides
// chunk size or overlap.
func (s *IndexingService) requestChunker(req *IndexRequest) (*chunker.Chunker, error) {
	if req.ChunkSize <= 0 && req.Overlap == nil {
		return s.chunker, nil
	}
	opts := s.chunker.Options()
	if req.ChunkSize > 0 {
		opts.ChunkSize = req.ChunkSize
	}
	if req.Overlap != nil {
		opts.Overlap = *req.Overlap
	}
	ch, err := chunker.New(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrInvalid, err.Error())
	}
	return ch, nil
}

func validateIndexRequest(req *IndexRequest) error {
	if strings.TrimSpace(req.NamespaceID) == "" {
		return fmt.Errorf("%w: namespace_id is required", errors.ErrInvalid)
	}
	if strings.TrimSpace(req.SourceID) == "" {
		return fmt.Errorf("%w: source_id is required", errors.ErrInvalid)
	}
	if !model.IsValidSourceType(req.SourceType) {
		return fmt.Errorf("%w: unknown source_type %q", errors.ErrInvalid, req.SourceType)
	}
	return nil
}

// IndexContent chunks, embeds and stores content. Re-indexing the same
// source replaces its previous records.
func (s *IndexingService) IndexContent(ctx context.Context, req *IndexRequest) (*IndexResult, error) {
	if err := validateIndexRequest(req); err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("namespace_id", req.NamespaceID),
		zap.String("source_type", req.SourceType),
		zap.String("source_id", req.SourceID),
	)

	ch, err := s.requestChunker(req)
	if err != nil {
		return nil, err
	}
	chunks := ch.Split(req.Content)
	if len(chunks) == 0 {
		logger.Info("nothing to index, content empty after chunking")
		return &IndexResult{ChunksCreated: 0, Message: "no content to index"}, nil
	}

	deferred := false
	vectors, err := s.embedder.EmbedBatch(ctx, chunks, ai.TaskTypeDocument)
	if err != nil {
		if !s.deferEmbed {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		logger.Warn("embedding failed, deferring to backfill", zap.Error(err))
		vectors = make([][]float32, len(chunks))
		deferred = true
	}

	now := time.Now().UnixMilli()
	records := make([]*model.EmbeddingRecord, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, &model.EmbeddingRecord{
			ID:            uuid.NewString(),
			NamespaceID:   req.NamespaceID,
			NamespaceType: req.NamespaceType,
			OrgID:         req.OrgID,
			SourceType:    req.SourceType,
			SourceID:      req.SourceID,
			Content:       chunk,
			ChunkIndex:    i,
			ChunkTotal:    len(chunks),
			Embedding:     vectors[i],
			Metadata:      withChunkMetadata(req.Metadata, i, len(chunks)),
			Ctime:         now,
			Mtime:         now,
		})
	}

	unlock := s.lockSource(req.SourceType, req.SourceID)
	defer unlock()

	if _, err := s.store.DeleteBySource(ctx, req.SourceType, req.SourceID); err != nil {
		return nil, fmt.Errorf("delete previous records: %w", err)
	}
	if err := s.store.Insert(ctx, records); err != nil {
		return nil, fmt.Errorf("insert records: %w", err)
	}
	logger.Info("indexed content", zap.Int("chunks", len(chunks)), zap.Bool("deferred", deferred))
	result := &IndexResult{ChunksCreated: len(chunks)}
	if deferred {
		result.Message = "embeddings deferred to backfill"
	}
	return result, nil
}

// IndexShortText stores one record without chunking. It is idempotent:
// a source that is already indexed is left untouched.
func (s *IndexingService) IndexShortText(ctx context.Context, req *IndexRequest) (*IndexResult, error) {
	if err := validateIndexRequest(req); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return &IndexResult{ChunksCreated: 0, Message: "no content to index"}, nil
	}

	unlock := s.lockSource(req.SourceType, req.SourceID)
	defer unlock()

	exists, err := s.store.ExistsForSource(ctx, req.SourceType, req.SourceID)
	if err != nil {
		return nil, err
	}
	if exists {
		logutil.GetLogger(ctx).Debug("source already indexed, skipping",
			zap.String("source_type", req.SourceType),
			zap.String("source_id", req.SourceID),
		)
		return &IndexResult{ChunksCreated: 0, Message: "source already indexed"}, nil
	}

	vector, err := s.embedder.Embed(ctx, content, ai.TaskTypeDocument)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	now := time.Now().UnixMilli()
	record := &model.EmbeddingRecord{
		ID:            uuid.NewString(),
		NamespaceID:   req.NamespaceID,
		NamespaceType: req.NamespaceType,
		OrgID:         req.OrgID,
		SourceType:    req.SourceType,
		SourceID:      req.SourceID,
		Content:       content,
		ChunkIndex:    0,
		ChunkTotal:    1,
		Embedding:     vector,
		Metadata:      withChunkMetadata(req.Metadata, 0, 1),
		Ctime:         now,
		Mtime:         now,
	}
	if err := s.store.Insert(ctx, []*model.EmbeddingRecord{record}); err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return &IndexResult{ChunksCreated: 1}, nil
}

// IndexFile extracts text from an uploaded file and indexes it.
func (s *IndexingService) IndexFile(ctx context.Context, req *IndexRequest, input processor.Input) (*IndexResult, error) {
	if err := validateIndexRequest(req); err != nil {
		return nil, err
	}
	p, ok := s.registry.Find(input.MimeType)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported mime type %q", errors.ErrInvalid, input.MimeType)
	}
	extracted, err := p.Process(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("extract %q: %w", input.Filename, err)
	}
	if len(extracted) == 0 {
		return &IndexResult{ChunksCreated: 0, Message: "no text extracted from file"}, nil
	}
	parts := make([]string, 0, len(extracted))
	metadata := map[string]interface{}{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	for _, seg := range extracted {
		parts = append(parts, seg.Content)
		for k, v := range seg.Metadata {
			metadata[k] = v
		}
	}
	contentReq := *req
	contentReq.Content = strings.Join(parts, "\n\n")
	contentReq.Metadata = metadata
	return s.IndexContent(ctx, &contentReq)
}

func (s *IndexingService) DeleteBySource(ctx context.Context, sourceType, sourceID string) (int64, error) {
	if !model.IsValidSourceType(sourceType) {
		return 0, fmt.Errorf("%w: unknown source_type %q", errors.ErrInvalid, sourceType)
	}
	unlock := s.lockSource(sourceType, sourceID)
	defer unlock()
	return s.store.DeleteBySource(ctx, sourceType, sourceID)
}

func (s *IndexingService) DeleteByNamespace(ctx context.Context, namespaceID string) (int64, error) {
	if strings.TrimSpace(namespaceID) == "" {
		return 0, fmt.Errorf("%w: namespace_id is required", errors.ErrInvalid)
	}
	return s.store.DeleteByNamespace(ctx, namespaceID)
}

func (s *IndexingService) Stats(ctx context.Context, namespaceID string) (*model.NamespaceStats, error) {
	if strings.TrimSpace(namespaceID) == "" {
		return nil, fmt.Errorf("%w: namespace_id is required", errors.ErrInvalid)
	}
	return s.store.Stats(ctx, namespaceID)
}

// Backfill embeds records whose embedding is missing, e.g. after a failed
// provider call. Returns the number of records repaired.
func (s *IndexingService) Backfill(ctx context.Context, batchSize int) (int, error) {
	records, err := s.store.ListMissingEmbeddings(ctx, batchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	texts := make([]string, 0, len(records))
	for _, record := range records {
		texts = append(texts, record.Content)
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts, ai.TaskTypeDocument)
	if err != nil {
		return 0, fmt.Errorf("embed backfill batch: %w", err)
	}
	repaired := 0
	for i, record := range records {
		if err := s.store.UpdateEmbedding(ctx, record.ID, vectors[i]); err != nil {
			logutil.GetLogger(ctx).Warn("failed to backfill embedding",
				zap.String("id", record.ID),
				zap.Error(err),
			)
			continue
		}
		repaired++
	}
	return repaired, nil
}

func withChunkMetadata(metadata map[string]interface{}, index, total int) map[string]interface{} {
	out := make(map[string]interface{}, len(metadata)+2)
	for k, v := range metadata {
		out[k] = v
	}
	out["chunk_index"] = index
	out["chunk_total"] = total
	return out
}
