package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mawsool/cx-insights/backend/internal/aggregator"
	"github.com/mawsool/cx-insights/backend/internal/api"
	"github.com/mawsool/cx-insights/backend/internal/auth"
	"github.com/mawsool/cx-insights/backend/internal/config"
	"github.com/mawsool/cx-insights/backend/internal/genesys"
	"github.com/mawsool/cx-insights/backend/internal/insight"
	"github.com/mawsool/cx-insights/backend/internal/metrics"
	"github.com/mawsool/cx-insights/backend/internal/poller"
	"github.com/mawsool/cx-insights/backend/internal/websocket"
	"github.com/mawsool/cx-insights/backend/pkg/middleware"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Str("region", cfg.GenesysRegion).
		Str("queue", cfg.QueueName).
		Dur("poll_interval", cfg.PollInterval).
		Msg("starting cx-insights backend server")

	// Create WebSocket hub
	hub := websocket.NewHub(log.Logger)
	go hub.Run()

	// Create context for services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create Genesys client and aggregation pipeline
	client := genesys.NewClient(genesys.Credentials{
		ClientID:     cfg.GenesysClientID,
		ClientSecret: cfg.GenesysClientSecret,
		Region:       cfg.GenesysRegion,
	}, log.Logger)

	agg := aggregator.New(client, client, log.Logger)

	// Start the refresh loop
	pollerService := poller.New(agg, client, hub, cfg.QueueName, cfg.PollInterval, cfg.MOSThreshold, log.Logger)
	go pollerService.Start(ctx)

	// Create WebSocket handler with initial state push
	wsHandler := websocket.NewHandler(hub, cfg, pollerService, log.Logger)

	// Create insight analyzer and API handlers
	analyzer := insight.NewAnalyzer(cfg.GeminiAPIKey, log.Logger)
	handlers := api.NewHandlers(pollerService, analyzer, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Register public routes (no auth required)
	r.Get("/health", handlers.HandleHealth)
	r.Get("/metrics", metrics.Get().Handler())

	// Add auth middleware for protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/api/metrics", handlers.HandleMetrics)
		r.Get("/api/alerts", handlers.HandleAlerts)
		r.Post("/api/insight", handlers.HandleInsight)
		r.Get("/ws", wsHandler.ServeHTTP)
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop the refresh loop
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
