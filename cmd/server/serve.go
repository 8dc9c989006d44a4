package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/user-admin-api/internal/api"
	"github.com/user-admin-api/internal/config"
	"github.com/user-admin-api/internal/repository"
	"github.com/user-admin-api/internal/seed"
	"github.com/user-admin-api/internal/service"
	"github.com/user-admin-api/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	format := cfg.Log.Format
	if cfg.IsDevelopment() {
		format = "pretty"
	}
	return logger.New(logger.Options{Level: cfg.Log.Level, Format: format})
}

// bootstrap loads configuration and builds the seeded in-memory services
func bootstrap(ctx context.Context) (*config.Config, zerolog.Logger, *service.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, withCode(exitInvalid, fmt.Errorf("failed to load configuration: %w", err))
	}
	log := newLogger(cfg)

	repos := repository.New()
	if cfg.Seed.Enabled {
		now := uint64(time.Now().UnixNano())
		loaded, err := seed.Load(ctx, repos.User, cfg.Seed.SampleUsers, rand.New(rand.NewPCG(now, now>>1)))
		if err != nil {
			return nil, log, nil, fmt.Errorf("failed to seed users: %w", err)
		}
		log.Info().Int("users", loaded).Msg("Seed data loaded")
	}

	return cfg, log, service.NewServices(repos, cfg, log, nil), nil
}

func runServe(ctx context.Context) error {
	cfg, log, services, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	log.Info().Msg("Starting User Admin API server...")

	// Background work
	services.Grid.StartSweeper(ctx)
	if cfg.Recommendation.StartOnBoot {
		started, err := services.Recommendation.Start(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to start recommendation panel")
		} else if started {
			log.Info().Msg("Initial recommendation requested")
		}
	}

	// Initialize router
	router, err := api.NewRouter(services, cfg, log)
	if err != nil {
		return withCode(exitInvalid, err)
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept"},
	}).Handler(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop background work
	services.Grid.StopSweeper()
	services.Recommendation.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exited gracefully")
	return nil
}
