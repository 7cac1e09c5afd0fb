package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/medprev-labs/medy-bot/internal/app/bootstrap"
	appconfig "github.com/medprev-labs/medy-bot/internal/config"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	// A standalone worker only makes sense against a shared queue.
	cfg.UseMemoryQueue = false

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting medy-bot dialog worker",
		"env", cfg.Env,
		"workers", cfg.WorkerCount,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, cleanup, err := bootstrap.BuildBot(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build bot", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	bot.Worker.Start(ctx)

	<-ctx.Done()
	logger.Info("shutting down worker...")
	bot.Worker.Wait()
	logger.Info("worker stopped")
}
