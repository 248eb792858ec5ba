package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/teamgrid/ragengine/internal/ai"
	"github.com/teamgrid/ragengine/internal/embedcache"
	"github.com/teamgrid/ragengine/internal/model"
	"github.com/teamgrid/ragengine/internal/pkg/errors"
	"github.com/teamgrid/ragengine/internal/vectorstore"
)

const sourcePreviewLen = 200

const noContextAnswer = "I could not find any relevant information to answer your question. Try rephrasing it, or index more content first."

const defaultSystemPrompt = `You are a helpful assistant answering questions about indexed workspace content.
Rules:
- Answer only from the provided context. If the context is insufficient, say so.
- Be concise.
- Answer in the same language as the question.
- Format the answer as markdown.`

// LLM is the chat surface the retrieval service talks to. ai.Client
// satisfies it.
type LLM interface {
	Chat(ctx context.Context, msgs []ai.Message, opts ai.ChatOptions) (string, error)
	ChatStream(ctx context.Context, msgs []ai.Message, opts ai.ChatOptions, fn ai.StreamFunc) error
}

type AskRequest struct {
	Question     string
	Options      vectorstore.SearchOptions
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

type Source struct {
	ID          string  `json:"id"`
	SourceType  string  `json:"source_type"`
	SourceID    string  `json:"source_id"`
	NamespaceID string  `json:"namespace_id"`
	Content     string  `json:"content"`
	Similarity  float64 `json:"similarity"`
}

type AskResult struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
}

// StreamCallbacks receive the answer as it is produced. Sources arrive
// first, before any delta.
type StreamCallbacks struct {
	OnSources func(sources []Source, confidence float64) error
	OnDelta   func(delta string) error
}

type RetrievalService struct {
	store    vectorstore.Store
	embedder embedcache.Embedder
	llm      LLM
	defaults vectorstore.SearchOptions
}

func NewRetrievalService(store vectorstore.Store, embedder embedcache.Embedder, llm LLM, defaults vectorstore.SearchOptions) *RetrievalService {
	return &RetrievalService{
		store:    store,
		embedder: embedder,
		llm:      llm,
		defaults: defaults,
	}
}

// Search embeds the query and returns the most similar records.
func (s *RetrievalService) Search(ctx context.Context, query string, opts vectorstore.SearchOptions) ([]model.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", errors.ErrInvalid)
	}
	opts = s.applyDefaults(opts)
	start := time.Now()
	vector, err := s.embedder.Embed(ctx, query, ai.TaskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := s.store.Search(ctx, vector, opts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	logutil.GetLogger(ctx).Info("search completed",
		zap.Int("results", len(results)),
		zap.Duration("cost", time.Since(start)),
	)
	return results, nil
}

// Ask answers a question grounded on search results. No matching content
// is not an error: the caller gets a fixed answer with zero confidence.
func (s *RetrievalService) Ask(ctx context.Context, req *AskRequest) (*AskResult, error) {
	results, err := s.Search(ctx, req.Question, req.Options)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &AskResult{
			Answer:     noContextAnswer,
			Sources:    []Source{},
			Confidence: 0,
		}, nil
	}
	answer, err := s.llm.Chat(ctx, buildMessages(req, results), ai.ChatOptions{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &AskResult{
		Answer:     answer,
		Sources:    buildSources(results),
		Confidence: confidence(results),
	}, nil
}

// AskStream is Ask with incremental answer delivery. Cancelling ctx stops
// the underlying generation.
func (s *RetrievalService) AskStream(ctx context.Context, req *AskRequest, cb StreamCallbacks) error {
	results, err := s.Search(ctx, req.Question, req.Options)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		if err := cb.OnSources([]Source{}, 0); err != nil {
			return err
		}
		return cb.OnDelta(noContextAnswer)
	}
	if err := cb.OnSources(buildSources(results), confidence(results)); err != nil {
		return err
	}
	return s.llm.ChatStream(ctx, buildMessages(req, results), ai.ChatOptions{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, cb.OnDelta)
}

func (s *RetrievalService) applyDefaults(opts vectorstore.SearchOptions) vectorstore.SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = s.defaults.Limit
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = s.defaults.MinSimilarity
	}
	return opts
}

func buildMessages(req *AskRequest, results []model.SearchResult) []ai.Message {
	systemPrompt := req.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}
	return []ai.Message{
		{Role: ai.RoleSystem, Content: systemPrompt},
		{Role: ai.RoleUser, Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", buildContext(results), req.Question)},
	}
}

func buildContext(results []model.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, result := range results {
		blocks = append(blocks, fmt.Sprintf("[%s] (relevance: %.1f%%)\n%s",
			sourceKind(result.SourceType), result.Similarity*100, result.Content))
	}
	return strings.Join(blocks, "\n\n")
}

func buildSources(results []model.SearchResult) []Source {
	sources := make([]Source, 0, len(results))
	for _, result := range results {
		sources = append(sources, Source{
			ID:          result.ID,
			SourceType:  result.SourceType,
			SourceID:    result.SourceID,
			NamespaceID: result.NamespaceID,
			Content:     truncate(result.Content, sourcePreviewLen),
			Similarity:  result.Similarity,
		})
	}
	return sources
}

func confidence(results []model.SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, result := range results {
		sum += result.Similarity
	}
	return sum / float64(len(results))
}

func sourceKind(sourceType string) string {
	switch sourceType {
	case model.SourceTypeMessage:
		return "Message"
	case model.SourceTypeAttachment:
		return "Attachment"
	case model.SourceTypeDocument:
		return "Document"
	case model.SourceTypeFile:
		return "File"
	default:
		return "Content"
	}
}

// truncate cuts after n runes so multi-byte content never yields a broken
// preview.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
