package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/teamgrid/ragengine/internal/pkg/errcode"
	"github.com/teamgrid/ragengine/internal/pkg/response"
	"github.com/teamgrid/ragengine/internal/service"
	"github.com/teamgrid/ragengine/internal/vectorstore"
)

type SearchHandler struct {
	retrieval *service.RetrievalService
}

func NewSearchHandler(retrieval *service.RetrievalService) *SearchHandler {
	return &SearchHandler{retrieval: retrieval}
}

type searchScope struct {
	NamespaceID   string   `json:"namespace_id"`
	NamespaceIDs  []string `json:"namespace_ids"`
	NamespaceType string   `json:"namespace_type"`
	OrgID         string   `json:"org_id"`
	SourceTypes   []string `json:"source_types"`
	Limit         int      `json:"limit"`
	MinSimilarity float64  `json:"min_similarity"`
}

func (s *searchScope) toOptions(c *gin.Context) vectorstore.SearchOptions {
	orgID := s.OrgID
	if tokenOrg := getOrgID(c); tokenOrg != "" {
		orgID = tokenOrg
	}
	return vectorstore.SearchOptions{
		NamespaceID:   s.NamespaceID,
		NamespaceIDs:  s.NamespaceIDs,
		NamespaceType: s.NamespaceType,
		OrgID:         orgID,
		SourceTypes:   s.SourceTypes,
		Limit:         s.Limit,
		MinSimilarity: s.MinSimilarity,
	}
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
	searchScope
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, err.Error())
		return
	}
	results, err := h.retrieval.Search(c.Request.Context(), req.Query, req.toOptions(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": results})
}

type askRequest struct {
	Question     string  `json:"question" binding:"required"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	searchScope
}

func (r *askRequest) toService(c *gin.Context) *service.AskRequest {
	return &service.AskRequest{
		Question:     r.Question,
		Options:      r.toOptions(c),
		SystemPrompt: r.SystemPrompt,
		Temperature:  r.Temperature,
		MaxTokens:    r.MaxTokens,
	}
}

func (h *SearchHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, err.Error())
		return
	}
	res, err := h.retrieval.Ask(c.Request.Context(), req.toService(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

// AskStream answers over server-sent events: one sources event, then
// delta events, then done. A client disconnect cancels generation through
// the request context.
func (h *SearchHandler) AskStream(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, err.Error())
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	send := func(event string, payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := c.Writer.Write([]byte("event: " + event + "\ndata: " + string(data) + "\n\n")); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	err := h.retrieval.AskStream(c.Request.Context(), req.toService(c), service.StreamCallbacks{
		OnSources: func(sources []service.Source, conf float64) error {
			return send("sources", gin.H{"sources": sources, "confidence": conf})
		},
		OnDelta: func(delta string) error {
			return send("delta", gin.H{"delta": delta})
		},
	})
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Error("ask stream failed", zap.Error(err))
		_ = send("error", gin.H{"message": "failed to generate answer"})
		return
	}
	_ = send("done", gin.H{})
}
