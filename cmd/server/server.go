package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/axellelanca/linkshortener/cmd"
	"github.com/axellelanca/linkshortener/internal/api"
	"github.com/axellelanca/linkshortener/internal/monitor"
	"github.com/axellelanca/linkshortener/internal/repository"
	"github.com/axellelanca/linkshortener/internal/services"
	"github.com/axellelanca/linkshortener/internal/workers"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// RunServerCmd représente la commande 'run-server' de Cobra.
// C'est le point d'entrée pour lancer le serveur de l'application.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Lance le serveur API de liens courts et les processus de fond.",
	Long: `Cette commande ouvre le stockage des liens, configure les APIs,
démarre les workers asynchrones pour les clics et le moniteur de santé,
puis lance le serveur HTTP.`,
	RunE: runServer,
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}

func runServer(command *cobra.Command, args []string) error {
	cfg, logger := cmd.Cfg, cmd.Logger

	ctx, stop := signal.NotifyContext(command.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close link store", "error", err)
		}
	}()

	clickWorkers := workers.StartClickWorkers(store.Links, workers.ClickWorkerConfig{
		WorkerCount:      cfg.Analytics.WorkerCount,
		BufferSize:       cfg.Analytics.BufferSize,
		IncrementTimeout: cfg.Analytics.IncrementTimeout,
	}, logger)
	logger.Info("click workers started",
		"workers", cfg.Analytics.WorkerCount, "buffer_size", cfg.Analytics.BufferSize)

	linkService := services.NewLinkService(store.Links,
		services.WithCodeLength(cfg.Shortener.CodeLength),
		services.WithMaxAttempts(cfg.Shortener.MaxAttempts),
		services.WithStoreTimeout(cfg.Shortener.StoreTimeout),
		services.WithLogger(logger),
	)
	resolver := services.NewResolver(store.Links, clickWorkers, cfg.Shortener.StoreTimeout, logger)

	interval := time.Duration(cfg.Monitor.IntervalMinutes) * time.Minute
	health := monitor.NewHealthMonitor(store.Links, cmd.Version, interval, logger)
	go health.Start(ctx)

	if !strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Dependencies{
		Links:    linkService,
		Resolver: resolver,
		Health:   health,
		Logger:   logger,
	}, cfg.Server.CORSOrigins)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr, "base_url", cfg.Server.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			_ = clickWorkers.Shutdown(context.Background())
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	// Stop accepting requests first so no click is recorded after the workers drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if err := clickWorkers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("click workers did not drain before the deadline", "error", err)
	}

	logger.Info("server stopped")
	return nil
}
