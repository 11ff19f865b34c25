package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"thumbhash-placeholder-layer/internal/application"
	"thumbhash-placeholder-layer/internal/application/webhook_handlers"
	"thumbhash-placeholder-layer/internal/bootstrap"
	"thumbhash-placeholder-layer/internal/config"
	apiinfra "thumbhash-placeholder-layer/internal/infrastructure/api"
	"thumbhash-placeholder-layer/internal/infrastructure/shopware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := bootstrap.NewLogger("info", "api")
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	logger := bootstrap.NewLogger(cfg.Log.Level, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	mongoClient, shops, err := bootstrap.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	// Initialize work queue
	workQueue, closeQueue, err := bootstrap.NewWorkQueue(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize work queue")
	}
	defer closeQueue()

	// Initialize application services
	signer := shopware.HMACSigner{}
	resolver := application.NewContextResolver(shops, signer, logger)
	registration := application.NewRegistrationService(shops, signer, application.RegistrationConfig{
		AppName:         cfg.App.Name,
		AppSecret:       cfg.App.Secret,
		ConfirmationURL: cfg.App.ConfirmationURL,
	}, logger)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppDeletedHandler(logger, resolver, shops))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewLifecycleHandler(logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewMediaUploadedHandler(logger, resolver, workQueue))

	// Standalone mode processes the in-memory queue in this process
	consumerDone := make(chan struct{})
	if cfg.Queue.Driver == config.QueueDriverMemory {
		processor := bootstrap.NewMediaProcessor(cfg, shops, logger)
		consumer := bootstrap.NewQueueConsumer(cfg, workQueue, processor, logger)
		go func() {
			defer close(consumerDone)
			consumer.Run(ctx)
		}()
		logger.Info().Msg("Running queue consumer in-process")
	} else {
		close(consumerDone)
	}

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      apiinfra.NewRouter(webhookDispatcher, registration, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Str("queueDriver", cfg.Queue.Driver).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	<-consumerDone

	logger.Info().Msg("Server shutdown complete")
}
