package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medprev-labs/medy-bot/internal/api/router"
	"github.com/medprev-labs/medy-bot/internal/app/bootstrap"
	"github.com/medprev-labs/medy-bot/internal/channels/chatwoot"
	appconfig "github.com/medprev-labs/medy-bot/internal/config"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting medy-bot API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, cleanup, err := bootstrap.BuildBot(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build bot", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// With the in-memory queue the worker must live in this process; turns
	// enqueued by the webhook would otherwise never drain.
	if cfg.UseMemoryQueue {
		bot.Worker.Start(ctx)
		defer bot.Worker.Wait()
	}

	webhookHandler := chatwoot.NewWebhookHandler(bot.Publisher, cfg.ChatwootWebhookToken, logger)

	r := router.New(&router.Config{
		Logger:          logger,
		ChatwootWebhook: webhookHandler,
		MetricsHandler:  promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
