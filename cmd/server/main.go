package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dealsignal/call-analysis/internal/config"
	"github.com/dealsignal/call-analysis/internal/httpapi"
	"github.com/dealsignal/call-analysis/internal/observability"
	"github.com/dealsignal/call-analysis/internal/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("refiner_enabled", cfg.RefinerEnabled).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Call Analysis Service starting")

	mux := http.NewServeMux()

	// Realtime WebSocket sessions
	mux.HandleFunc("/realtime", session.Handler(cfg))

	// Batch REST analysis, with the refiner overlay when configured
	var refiner httpapi.Refiner = httpapi.NoopRefiner{}
	checks := map[string]observability.HealthCheckFunc{}
	if cfg.RefinerEnabled {
		httpRefiner := httpapi.NewHTTPRefiner(cfg)
		refiner = httpRefiner
		checks["refiner"] = func(ctx context.Context) (bool, error) {
			if err := httpRefiner.HealthCheck(); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	httpapi.NewServer(cfg, refiner).Routes(mux)

	// Health and readiness endpoints
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/realtime", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
