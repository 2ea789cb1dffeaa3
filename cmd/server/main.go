package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vehicle-data-service/internal/app"
	"vehicle-data-service/internal/infrastructure/config"
	"vehicle-data-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger().Fatal("Failed to load config", "error", err)
	}

	log := logger.NewLoggerWithLevel(cfg.LogLevel)
	defer log.Sync()
	log.Info("Starting Vehicle Data Service",
		"version", cfg.AppVersion,
		"provider", cfg.ProviderName,
		"testMode", cfg.ProviderTestMode)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service, err := app.New(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal("Failed to start service", "error", err)
	}

	// Enrich new listings and retire expired ones on a ticker
	go func() {
		ticker := time.NewTicker(cfg.EnrichInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Listing enricher stopped")
				return
			case <-ticker.C:
				if n, err := service.Enricher.ProcessPendingListings(ctx); err != nil {
					log.Error("Error enriching listings", "error", err)
				} else if n > 0 {
					log.Info("Enriched pending listings", "count", n)
				}
				if _, err := service.Enricher.ExpireListings(ctx); err != nil {
					log.Error("Error expiring listings", "error", err)
				}
			}
		}
	}()

	// Set up HTTP server for metrics and health
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", service.Health())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel()
	service.Close(shutdownCtx)

	log.Info("Vehicle Data Service stopped")
}
