package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/teamgrid/ragengine/internal/ai"
	"github.com/teamgrid/ragengine/internal/chunker"
	"github.com/teamgrid/ragengine/internal/config"
	"github.com/teamgrid/ragengine/internal/db"
	"github.com/teamgrid/ragengine/internal/embedcache"
	"github.com/teamgrid/ragengine/internal/filestore"
	"github.com/teamgrid/ragengine/internal/handler"
	"github.com/teamgrid/ragengine/internal/job"
	"github.com/teamgrid/ragengine/internal/middleware"
	"github.com/teamgrid/ragengine/internal/processor"
	"github.com/teamgrid/ragengine/internal/schedule"
	"github.com/teamgrid/ragengine/internal/service"
	"github.com/teamgrid/ragengine/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ragengine",
		Short: "ragengine retrieval server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run ragengine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("file_store", cfg.FileStore.Type),
	)

	store := vectorstore.NewPostgresStore(conn)
	cacheRepo := embedcache.NewCacheRepo(conn)

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	client := ai.NewClient(provider, ai.ClientOptions{
		EmbedModel:      cfg.AI.EmbeddingModel,
		EmbedDims:       cfg.AI.EmbeddingDims,
		ChatModel:       cfg.AI.ChatModel,
		TranscribeModel: cfg.AI.TranscriptionModel,
		Timeout:         time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	})
	embedder := embedcache.WrapLRU(
		embedcache.WrapDB(client, cacheRepo),
		cfg.CacheSize,
		2*time.Hour,
	)

	ch, err := chunker.New(chunker.Options{
		ChunkSize: cfg.Chunking.ChunkSize,
		Overlap:   cfg.Chunking.Overlap,
	})
	if err != nil {
		return fmt.Errorf("init chunker: %w", err)
	}

	// Specific formats first, the generic text processor as the fallback.
	registry := processor.NewRegistry(
		processor.NewPDFProcessor(),
		processor.NewAudioProcessor(client),
		processor.NewVideoProcessor(client, cfg.FFmpegPath),
		processor.NewTextProcessor(),
	)

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	indexingService := service.NewIndexingService(store, embedder, ch, registry)
	indexingService.DeferEmbedFailure(cfg.Backfill.Enable && cfg.Backfill.DeferOnFailure)
	retrievalService := service.NewRetrievalService(store, embedder, client, vectorstore.SearchOptions{
		Limit:         cfg.Search.Limit,
		MinSimilarity: cfg.Search.MinSimilarity,
	})

	deps := handler.RouterDeps{
		Embeddings:      handler.NewEmbeddingHandler(indexingService, files),
		Search:          handler.NewSearchHandler(retrievalService),
		JWTSecret:       []byte(cfg.JWTSecret),
		AskRateWindow:   time.Duration(cfg.RateLimit.AskWindowMS) * time.Millisecond,
		IndexRateWindow: time.Duration(cfg.RateLimit.IndexWindowMS) * time.Millisecond,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewScheduler()
	if cfg.Backfill.Enable {
		if err := scheduler.AddJob(job.NewBackfillJob(indexingService, cfg.Backfill.BatchSize), cfg.Backfill.Cron); err != nil {
			return fmt.Errorf("schedule backfill job: %w", err)
		}
	}
	if err := scheduler.AddJob(job.NewCachePruneJob(cacheRepo, 0), "0 4 * * *"); err != nil {
		return fmt.Errorf("schedule cache prune job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
