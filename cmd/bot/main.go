// Package main starts the bestsbot Telegram bot.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bestsbot/backend/internal/bot"
	"github.com/bestsbot/backend/internal/config"
	"github.com/bestsbot/backend/internal/logging"
	"github.com/bestsbot/backend/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		log.Fatalf("Invalid bot configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	b, err := bot.New(cfg.Bot, logger)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if cfg.Bot.MetricsPort > 0 {
		go serveMetrics(cfg.Bot.MetricsPort, logger)
	}

	logger.WithField("webapp_url", cfg.Bot.WebAppURL).Info("bot starting long polling")
	if err := b.Run(ctx); err != nil {
		log.Fatalf("Bot error: %v", err)
	}

	logger.Info("bot stopped")
}

// serveMetrics exposes the update counters on a side listener.
func serveMetrics(port int, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.WithField("addr", srv.Addr).Info("metrics listener starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Warn("metrics listener stopped")
	}
}
