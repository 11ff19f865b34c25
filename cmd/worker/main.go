package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"thumbhash-placeholder-layer/internal/bootstrap"
	"thumbhash-placeholder-layer/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := bootstrap.NewLogger("info", "worker")
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := bootstrap.NewLogger(cfg.Log.Level, "worker")

	if cfg.Queue.Driver == config.QueueDriverMemory {
		logger.Fatal().Msg("The worker needs a shared queue; QUEUE_DRIVER=memory only works inside the api process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, shops, err := bootstrap.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	workQueue, closeQueue, err := bootstrap.NewWorkQueue(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize work queue")
	}
	defer closeQueue()

	processor := bootstrap.NewMediaProcessor(cfg, shops, logger)
	consumer := bootstrap.NewQueueConsumer(cfg, workQueue, processor, logger)

	// Health and metrics for the worker pod
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	logger.Info().
		Str("queue", cfg.Queue.Name).
		Int("concurrency", cfg.Queue.Concurrency).
		Msg("Starting worker")

	if err := consumer.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Queue consumer stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Metrics server shutdown failed")
	}

	logger.Info().Msg("Worker stopped")
}
