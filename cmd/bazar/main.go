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
	"go.uber.org/zap"

	"github.com/bazar-cloud/bazar/internal/config"
	"github.com/bazar-cloud/bazar/internal/db"
	"github.com/bazar-cloud/bazar/internal/db/postgres"
	dbRedis "github.com/bazar-cloud/bazar/internal/db/redis"
	"github.com/bazar-cloud/bazar/internal/domain"
	logpkg "github.com/bazar-cloud/bazar/internal/logger"
	"github.com/bazar-cloud/bazar/internal/metrics"
	"github.com/bazar-cloud/bazar/internal/repository/embcache"
	jobrepo "github.com/bazar-cloud/bazar/internal/repository/job"
	productrepo "github.com/bazar-cloud/bazar/internal/repository/product"
	searchlogrepo "github.com/bazar-cloud/bazar/internal/repository/searchlog"
	chiTransport "github.com/bazar-cloud/bazar/internal/transport/chi"
	"github.com/bazar-cloud/bazar/internal/transport/mockai"
	openaiAI "github.com/bazar-cloud/bazar/internal/transport/openai"
	"github.com/bazar-cloud/bazar/internal/transport/scraper"
	cataloguc "github.com/bazar-cloud/bazar/internal/usecase/catalog"
	healthuc "github.com/bazar-cloud/bazar/internal/usecase/health"
	ingestuc "github.com/bazar-cloud/bazar/internal/usecase/ingest"
	searchuc "github.com/bazar-cloud/bazar/internal/usecase/search"
	"github.com/bazar-cloud/bazar/internal/version"
	"github.com/bazar-cloud/bazar/internal/worker"
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

	logger.Info("Starting bazar API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	pg, err := postgres.Open(postgres.Config{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer pg.Close()

	ctx := context.Background()
	if err := pg.WaitForReady(ctx, time.Duration(cfg.Postgres.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	if err := pg.Migrate(ctx, cfg.AI.Embedding.Dimensions); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Redis is optional: without it embeddings are just not cached.
	var kv db.KV
	if len(cfg.Redis.Addrs) > 0 {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()
		if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		kv = store
		logger.Info("Connected to cache")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterExtractionMetrics()
	metrics.RegisterMarketplaceMetrics()

	// Create AI providers based on configuration
	embedder, extractor, finder := buildProviders(&cfg, logger)
	// Health probes the raw provider; the cache decorator below has no
	// health check of its own.
	embeddingHealth := newEmbeddingHealthChecker(embedder)
	if kv != nil {
		embedder = embcache.New(
			embedder, kv,
			time.Duration(cfg.AI.Embedding.CacheTTLSec)*time.Second,
			metrics.EmbeddingCacheTotal, logger,
		)
	}

	// Instruction prefix (outermost — cache key includes instruction)
	docEmbedder := embedder
	if instr := cfg.AI.Embedding.DocumentInstruction; instr != "" {
		docEmbedder = domain.NewInstructionEmbedder(embedder, instr)
	}
	queryEmbedder := embedder
	if instr := cfg.AI.Embedding.QueryInstruction; instr != "" {
		queryEmbedder = domain.NewInstructionEmbedder(embedder, instr)
	}
	logger.Info("AI providers created",
		zap.String("provider", cfg.AI.Provider),
		zap.String("embedding_model", cfg.AI.Embedding.Model),
		zap.Int("dimensions", cfg.AI.Embedding.Dimensions),
	)

	// Create repositories (domain-native, no adapters)
	productRepo := productrepo.New(pg.SQL())
	jobRepo := jobrepo.New(pg.SQL())
	searchLogRepo := searchlogrepo.New(pg.SQL())

	// Create use case services
	searchSvc := searchuc.New(productRepo, searchLogRepo, queryEmbedder, logger).
		WithCandidatePool(cfg.Search.CandidatePool).
		WithMetrics(metrics.SearchDuration, metrics.SearchResults)
	ingestSvc := ingestuc.New(jobRepo, productRepo, extractor, docEmbedder, logger).
		WithImageFinder(finder).
		WithMetrics(metrics.IngestJobsTotal)
	catalogSvc := cataloguc.New(productRepo, logger)

	// Pass nil interface (not typed nil pointer!) if cache is not configured.
	// Go gotcha: (*redis.Store)(nil) wrapped in CachePinger != nil.
	var cachePinger healthuc.CachePinger
	if kv != nil {
		cachePinger = kv
	}
	healthSvc := healthuc.New(pg, cachePinger, embeddingHealth)

	// Worker pool picks up async ingestion jobs; the sweep recovers jobs
	// that were pending when a previous instance died.
	pool := worker.New(ingestSvc, cfg.Ingest.Workers, cfg.Ingest.QueueSize, logger).
		WithSweep(time.Duration(cfg.Ingest.SweepIntervalSec)*time.Second, cfg.Ingest.SweepBatch).
		WithMetrics(metrics.WorkerQueueDepth)
	ingestSvc.WithDispatcher(pool)
	pool.Start(ctx)

	// Create chi server
	server := chiTransport.NewServer(searchSvc, ingestSvc, catalogSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

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

	// Stop taking requests first, then drain the ingestion queue.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := pool.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping worker pool", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildProviders assembles the embedding, extraction and image-finding
// providers. Validate already pinned the provider to "openai" or "mock".
func buildProviders(cfg *config.Config, logger *zap.Logger) (domain.Embedder, ingestuc.Extractor, ingestuc.ImageFinder) {
	if cfg.AI.Provider == "mock" {
		p := mockai.New(cfg.AI.Embedding.Dimensions, logger)
		if cfg.AI.Mock.LatencyMs > 0 {
			p.WithLatency(time.Duration(cfg.AI.Mock.LatencyMs) * time.Millisecond)
		}
		return p, p, p
	}

	embedder := openaiAI.NewEmbedder(&openaiAI.Config{
		APIKey:     cfg.AI.OpenAI.APIKey,
		BaseURL:    cfg.AI.OpenAI.BaseURL,
		Model:      cfg.AI.Embedding.Model,
		Dimensions: cfg.AI.Embedding.Dimensions,
		Provider:   cfg.AI.Provider,
		Timeout:    time.Duration(cfg.AI.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	extractor := openaiAI.NewExtractor(&openaiAI.ExtractorConfig{
		APIKey:          cfg.AI.OpenAI.APIKey,
		BaseURL:         cfg.AI.OpenAI.BaseURL,
		Model:           cfg.AI.Extraction.Model,
		TranscribeModel: cfg.AI.Extraction.TranscribeModel,
		Temperature:     cfg.AI.Extraction.Temperature,
		Timeout:         time.Duration(cfg.AI.Extraction.TimeoutSec) * time.Second,
		Provider:        cfg.AI.Provider,
		Logger:          logger,
	})
	finder := scraper.NewFinder(&scraper.Config{
		SearchURL: cfg.AI.Scraper.SearchURL,
		UserAgent: cfg.AI.Scraper.UserAgent,
		MaxImages: cfg.AI.Scraper.MaxImages,
		Timeout:   time.Duration(cfg.AI.Scraper.TimeoutSec) * time.Second,
		Logger:    logger,
	})
	return embedder, extractor, finder
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
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

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
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
