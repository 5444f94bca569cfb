package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/queryfuse/internal/config"
	"github.com/kailas-cloud/queryfuse/internal/db"
	dbMemory "github.com/kailas-cloud/queryfuse/internal/db/memory"
	dbRedis "github.com/kailas-cloud/queryfuse/internal/db/redis"
	"github.com/kailas-cloud/queryfuse/internal/domain"
	"github.com/kailas-cloud/queryfuse/internal/domain/strategy"
	logpkg "github.com/kailas-cloud/queryfuse/internal/logger"
	"github.com/kailas-cloud/queryfuse/internal/metrics"
	catalogrepo "github.com/kailas-cloud/queryfuse/internal/repository/catalog"
	"github.com/kailas-cloud/queryfuse/internal/repository/embcache"
	"github.com/kailas-cloud/queryfuse/internal/repository/searchcache"
	spacesrepo "github.com/kailas-cloud/queryfuse/internal/repository/spaces"
	"github.com/kailas-cloud/queryfuse/internal/transport/httpapi"
	"github.com/kailas-cloud/queryfuse/internal/transport/langchain"
	openaiEmb "github.com/kailas-cloud/queryfuse/internal/transport/openai"
	"github.com/kailas-cloud/queryfuse/internal/usecase/enrichment"
	"github.com/kailas-cloud/queryfuse/internal/usecase/extraction"
	"github.com/kailas-cloud/queryfuse/internal/usecase/fusion"
	healthuc "github.com/kailas-cloud/queryfuse/internal/usecase/health"
	"github.com/kailas-cloud/queryfuse/internal/usecase/multisearch"
	"github.com/kailas-cloud/queryfuse/internal/usecase/pipeline"
	"github.com/kailas-cloud/queryfuse/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting queryfuse API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Store not ready", zap.Error(err))
	}
	logger.Info("Connected to store")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Embedder chain: OpenAI -> Cached. The cache key includes the
	// space, so per-space instruction prefixes stay distinct.
	instructions := make(map[string]string, len(cfg.Spaces))
	domainSpaces := make([]domain.VectorSpace, 0, len(cfg.Spaces))
	weights := make(map[string]float64, len(cfg.Spaces))
	for _, sp := range cfg.Spaces {
		instructions[sp.Name] = sp.Instruction
		weights[sp.Name] = sp.Weight
		domainSpaces = append(domainSpaces, domain.VectorSpace{
			Name:        sp.Name,
			Instruction: sp.Instruction,
			Weight:      sp.Weight,
		})
	}

	baseEmbedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:       cfg.Embedding.APIKey,
		BaseURL:      cfg.Embedding.BaseURL,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		Provider:     cfg.Embedding.Provider,
		Instructions: instructions,
		Logger:       logger,
	})
	embedder := embcache.New(
		baseEmbedder, store, cfg.Cache.KeyPrefix,
		time.Duration(cfg.Cache.EmbeddingTTLSec)*time.Second,
		metrics.EmbeddingCacheTotal, logger,
	)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Int("spaces", len(domainSpaces)),
	)

	// Remote reasoner (extraction fallback)
	reasoner, err := langchain.NewReasoner(&langchain.Config{
		BaseURL: cfg.Reasoner.BaseURL,
		APIKey:  cfg.Reasoner.APIKey,
		Model:   cfg.Reasoner.Model,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("Failed to create reasoner", zap.Error(err))
	}

	// Worker pool for local model inference
	pool, err := ants.NewPool(cfg.Extraction.WorkerPoolSize)
	if err != nil {
		logger.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	// Repositories
	spacesRepo := spacesrepo.New(store, cfg.Cache.KeyPrefix)
	catalogRepo := catalogrepo.New(store, cfg.Cache.KeyPrefix, logger)
	searchCache := searchcache.New(store, searchcache.Config{
		KeyPrefix:    cfg.Cache.KeyPrefix,
		StatisticTTL: time.Duration(cfg.Cache.StatisticsTTLSec) * time.Second,
		ResultSetTTL: time.Duration(cfg.Cache.ResultsTTLSec) * time.Second,
	}, logger)

	// Use case services
	extractSvc := extraction.New(
		extraction.NewLexiconModel(), reasoner, pool,
		cfg.Extraction.ConfidenceThreshold, logger,
	)
	enrichSvc := enrichment.New(embedder, spacesRepo, catalogRepo, searchCache, enrichment.Config{
		Spaces:                  cfg.Enrichment.Spaces,
		MinScore:                cfg.Enrichment.MinScore,
		ResultCap:               cfg.Enrichment.ResultCap,
		ConfidenceSampleDivisor: cfg.Enrichment.ConfidenceSampleDivisor,
	}, logger)
	coordinator := multisearch.New(embedder, spacesRepo, domainSpaces, multisearch.Config{
		LimitPerSpace:  cfg.Search.LimitPerSpace,
		MinScore:       cfg.Search.MinScore,
		SpaceTimeout:   time.Duration(cfg.Search.SpaceTimeoutSec) * time.Second,
		DegradeTimeout: time.Duration(cfg.Search.DegradeTimeoutSec) * time.Second,
	}, logger)
	searcher := multisearch.NewCached(coordinator, searchCache)
	engine := fusion.NewEngine(fusion.Config{
		K:        cfg.Fusion.RRFK,
		Weights:  weights,
		Priority: cfg.Fusion.SourcePriority,
	}, logger)
	pipelineSvc := pipeline.New(extractSvc, enrichSvc, searcher, engine, catalogRepo, pipeline.Config{
		DefaultStrategy: strategy.Strategy(cfg.Fusion.DefaultStrategy),
		DiversityTopK:   cfg.Fusion.DiversityTopK,
	}, logger)

	healthSvc := healthuc.New(store, baseEmbedder)

	// HTTP server
	server := httpapi.NewServer(pipelineSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
