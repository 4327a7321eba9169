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

	"github.com/kailas-cloud/datahub/internal/config"
	"github.com/kailas-cloud/datahub/internal/db"
	dbMemory "github.com/kailas-cloud/datahub/internal/db/memory"
	dbRedis "github.com/kailas-cloud/datahub/internal/db/redis"
	logpkg "github.com/kailas-cloud/datahub/internal/logger"
	"github.com/kailas-cloud/datahub/internal/metrics"
	catalogrepo "github.com/kailas-cloud/datahub/internal/repository/catalog"
	deduprepo "github.com/kailas-cloud/datahub/internal/repository/dedup"
	metadatarepo "github.com/kailas-cloud/datahub/internal/repository/metadata"
	queuerepo "github.com/kailas-cloud/datahub/internal/repository/queue"
	searchindexrepo "github.com/kailas-cloud/datahub/internal/repository/searchindex"
	"github.com/kailas-cloud/datahub/internal/transport/blob"
	chiTransport "github.com/kailas-cloud/datahub/internal/transport/chi"
	"github.com/kailas-cloud/datahub/internal/transport/labels"
	openaiEmb "github.com/kailas-cloud/datahub/internal/transport/openai"
	cataloguc "github.com/kailas-cloud/datahub/internal/usecase/catalog"
	counteruc "github.com/kailas-cloud/datahub/internal/usecase/counter"
	enrichuc "github.com/kailas-cloud/datahub/internal/usecase/enrich"
	healthuc "github.com/kailas-cloud/datahub/internal/usecase/health"
	projectionuc "github.com/kailas-cloud/datahub/internal/usecase/projection"
	"github.com/kailas-cloud/datahub/internal/version"
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

	logger.Info("Starting datahub API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create database store based on driver
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
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Create repositories (domain-native, no adapters)
	prefix := cfg.Storage.KeyPrefix
	catalogRepo := catalogrepo.New(store, prefix)
	dedupRepo := deduprepo.New(store, prefix)
	metaRepo := metadatarepo.New(store, prefix)

	indexRepo := searchindexrepo.New(store, prefix)
	if cfg.Embedding.APIKey != "" {
		indexRepo = indexRepo.WithVectorDim(cfg.Embedding.Dimensions)
	}
	if err := indexRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure search index", zap.Error(err))
	}

	queueCfg := queuerepo.Config{
		MaxAttempts:       cfg.Queue.MaxAttempts,
		BackoffBase:       time.Duration(cfg.Queue.BackoffBaseMs) * time.Millisecond,
		BackoffCap:        time.Duration(cfg.Queue.BackoffCapSec) * time.Second,
		VisibilityTimeout: time.Duration(cfg.Queue.VisibilityTimeoutSec) * time.Second,
	}
	projQueue := queuerepo.New(store, prefix, "projection", queueCfg)
	uploadQueue := queuerepo.New(store, prefix, "uploads", queueCfg)

	// Outbound clients
	fetcher := blob.NewClient(
		time.Duration(cfg.Enrich.DownloadTimeoutSec)*time.Second,
		int64(cfg.Enrich.MaxFileBytes),
	)
	labelClient := labels.NewClient(cfg.Labels.BaseURL, time.Duration(cfg.Labels.TimeoutSec)*time.Second)

	// Pass nil interface (not typed nil pointer!) if embeddings are not configured.
	var embedder enrichuc.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
		logger.Info("Embeddings enabled",
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}

	// Create use case services
	counters := counteruc.New(dedupRepo,
		time.Duration(cfg.Dedup.DownloadWindowSec)*time.Second,
		time.Duration(cfg.Dedup.ViewWindowSec)*time.Second,
	)
	builder := enrichuc.NewBuilder(metaRepo, labelClient, embedder)
	enrichSvc := enrichuc.New(fetcher, metaRepo, catalogRepo, builder, indexRepo,
		cfg.Enrich.PreviewRows, cfg.Enrich.PreviewMaxBytes)
	catalogSvc := cataloguc.New(catalogRepo, counters, projQueue, uploadQueue)

	healthSvc := healthuc.New(store).
		WithQueue("projection", projQueue).
		WithQueue("uploads", uploadQueue)

	// Background workers: the projection worker drains the catalog task queue,
	// the enrichment worker drains upload-completed signals.
	pollInterval := time.Duration(cfg.Queue.PollIntervalMs) * time.Millisecond
	projWorker := projectionuc.NewWorker(projQueue, indexRepo, catalogRepo, builder).
		WithBatchSize(cfg.Queue.BatchSize).
		WithPollInterval(pollInterval)
	enrichWorker := enrichuc.NewWorker(uploadQueue, enrichSvc).
		WithBatchSize(cfg.Queue.BatchSize).
		WithPollInterval(pollInterval)

	workerCtx, stopWorkers := context.WithCancel(logpkg.ContextWithLogger(ctx, logger))
	go projWorker.Run(workerCtx)
	go enrichWorker.Run(workerCtx)

	// Create chi server
	server := chiTransport.NewServer(catalogSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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
	stopWorkers()

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
