package main

import (
	"context"
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

	"github.com/clipdex/clipdex/internal/ai"
	"github.com/clipdex/clipdex/internal/config"
	"github.com/clipdex/clipdex/internal/corpus"
	"github.com/clipdex/clipdex/internal/embedcache"
	"github.com/clipdex/clipdex/internal/embedding"
	"github.com/clipdex/clipdex/internal/filestore"
	"github.com/clipdex/clipdex/internal/generation"
	"github.com/clipdex/clipdex/internal/handler"
	"github.com/clipdex/clipdex/internal/index"
	"github.com/clipdex/clipdex/internal/job"
	"github.com/clipdex/clipdex/internal/middleware"
	"github.com/clipdex/clipdex/internal/retriever"
	"github.com/clipdex/clipdex/internal/schedule"
	"github.com/clipdex/clipdex/internal/service"
)

type engineDeps struct {
	cfg       *config.Config
	cache     embedcache.Store
	retriever *retriever.Retriever
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "clipdex",
		Short: "multimodal retrieval server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the retrieval server",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			return runServer(deps)
		},
	}

	buildCmd := &cobra.Command{
		Use:   "build-index",
		Short: "build both indices from the corpus and save them",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := deps.retriever.Rebuild(ctx); err != nil {
				return fmt.Errorf("build indices: %w", err)
			}
			_, imageCount, textCount := deps.retriever.Status()
			logutil.GetLogger(ctx).Info("indices built",
				zap.Int("image_count", imageCount),
				zap.Int("text_count", textCount),
			)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd, buildCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func bootstrap(configPath string) (*engineDeps, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
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

	cache, err := embedcache.New(cfg.Cache, cfg.AI.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	provider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.EmbedData)
	if err != nil {
		return nil, fmt.Errorf("init embed provider: %w", err)
	}
	embedder := embedding.New(
		provider,
		cfg.AI.EmbedModel,
		embedcache.WrapLRU(cache, cfg.Cache.LRUSize, time.Duration(cfg.Cache.LRUTTLSeconds)*time.Second),
		cfg.Index.Dimension,
	)
	store, err := filestore.New(cfg.Index.Store)
	if err != nil {
		return nil, fmt.Errorf("init index store: %w", err)
	}
	manager := index.NewManager(embedder, store, cfg.Index.Dimension, cfg.AI.BatchSize)
	loader := corpus.NewFileLoader(cfg.Corpus)
	engine := retriever.New(embedder, manager, loader, cfg.Retrieval.TopK, cfg.Retrieval.MinSimilarity)
	return &engineDeps{cfg: cfg, cache: cache, retriever: engine}, nil
}

func buildGenerator(cfg *config.Config) *generation.Generator {
	var entries []ai.GeneratorEntry
	for _, gc := range cfg.AI.Generators {
		p, err := ai.NewProvider(gc.Provider, gc.Data)
		if err != nil {
			logutil.GetLogger(context.Background()).Warn("skip generator provider",
				zap.String("provider", gc.Provider), zap.Error(err))
			continue
		}
		entries = append(entries, ai.GeneratorEntry{
			Name:      gc.Provider,
			Generator: ai.NewGenerator(p, gc.Model),
		})
	}
	var gen ai.IGenerator
	if len(entries) > 0 {
		gen = ai.NewGroupGenerator(entries)
	}
	return generation.New(gen, time.Duration(cfg.AI.GenTimeoutSec)*time.Second)
}

func runServer(deps *engineDeps) error {
	cfg := deps.cfg
	logutil.GetLogger(context.Background()).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("index_store", cfg.Index.Store.Type),
	)

	searchService := service.NewSearchService(deps.retriever, buildGenerator(cfg), cfg.Retrieval.TopK)
	routerDeps := handler.RouterDeps{
		Search: handler.NewSearchHandler(searchService),
		Ask:    handler.NewAskHandler(searchService),
		Status: handler.NewStatusHandler(searchService),
	}

	middlewares := []gin.HandlerFunc{
		middleware.CORS(cfg.CORSAllowlist),
		gzip.Gzip(gzip.DefaultCompression),
	}
	if cfg.RateLimitMS > 0 {
		middlewares = append(middlewares, middleware.RateLimit(time.Duration(cfg.RateLimitMS)*time.Millisecond))
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, routerDeps)
		}),
		webapi.WithExtraMiddlewares(middlewares...),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Cache.CleanupCron != "" {
		if pruner, ok := deps.cache.(embedcache.Pruner); ok {
			if err := scheduler.AddJob(job.NewCacheCleanupJob(pruner, cfg.Cache.MaxAgeDays), cfg.Cache.CleanupCron); err != nil {
				return err
			}
		}
	}
	if cfg.Retrieval.RebuildCron != "" {
		if err := scheduler.AddJob(job.NewIndexRebuildJob(deps.retriever), cfg.Retrieval.RebuildCron); err != nil {
			return err
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Warm the engine in the background; a slow first build must not block
	// the listener, searches before it finishes initialize on demand.
	go func() {
		if err := deps.retriever.Initialize(ctx); err != nil {
			logutil.GetLogger(ctx).Error("initial index load failed", zap.Error(err))
		}
	}()

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
