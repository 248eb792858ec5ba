package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamgrid/ragengine/internal/middleware"
)

type RouterDeps struct {
	Embeddings      *EmbeddingHandler
	Search          *SearchHandler
	JWTSecret       []byte
	AskRateWindow   time.Duration
	IndexRateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.Use(middleware.RequestID())

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	indexGroup := authGroup.Group("")
	if deps.IndexRateWindow > 0 {
		indexGroup.Use(middleware.RateLimit(deps.IndexRateWindow))
	}
	indexGroup.POST("/embeddings/index", deps.Embeddings.Index)
	indexGroup.POST("/embeddings/index-short", deps.Embeddings.IndexShort)
	indexGroup.POST("/embeddings/index-file", deps.Embeddings.IndexFile)

	authGroup.DELETE("/embeddings/source/:source_type/:source_id", deps.Embeddings.DeleteSource)
	authGroup.DELETE("/embeddings/namespace/:namespace_id", deps.Embeddings.DeleteNamespace)
	authGroup.GET("/embeddings/stats/:namespace_id", deps.Embeddings.Stats)

	authGroup.POST("/search", deps.Search.Search)

	askGroup := authGroup.Group("")
	if deps.AskRateWindow > 0 {
		askGroup.Use(middleware.RateLimit(deps.AskRateWindow))
	}
	askGroup.POST("/ask", deps.Search.Ask)
	askGroup.POST("/ask/stream", deps.Search.AskStream)
}
