// Package bootstrap wires the bot's collaborators from configuration so the
// API and worker binaries share one construction path.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/medprev-labs/medy-bot/internal/analyzer"
	"github.com/medprev-labs/medy-bot/internal/cart"
	"github.com/medprev-labs/medy-bot/internal/channels/chatwoot"
	appconfig "github.com/medprev-labs/medy-bot/internal/config"
	"github.com/medprev-labs/medy-bot/internal/dialog"
	"github.com/medprev-labs/medy-bot/internal/intake"
	"github.com/medprev-labs/medy-bot/internal/observability/metrics"
	"github.com/medprev-labs/medy-bot/internal/transcript"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

// Bot bundles the wired components the binaries pick from.
type Bot struct {
	Engine    *dialog.Engine
	Publisher *dialog.Publisher
	Worker    *dialog.Worker
	Metrics   *metrics.DialogMetrics
}

// BuildBot constructs the dialog engine, queue, channel adapter, and worker
// from config. The returned cleanup closes owned connections.
func BuildBot(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Bot, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	dialogMetrics := metrics.NewDialogMetrics(nil)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Conversation state: Redis when configured, in-process memory otherwise.
	var store dialog.Store
	var profiles dialog.ProfileStore
	if cfg.RedisAddr != "" {
		redisOpts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(redisOpts)
		closers = append(closers, func() { _ = redisClient.Close() })

		redisStore := dialog.NewRedisStore(redisClient, nil)
		store = redisStore
		profiles = redisStore
		logger.Info("using redis dialog store", "addr", cfg.RedisAddr)
	} else {
		memStore := dialog.NewMemoryStore()
		store = memStore
		profiles = memStore
		logger.Warn("no redis configured; dialog state will not survive restarts")
	}

	awsCfg, err := awsConfig(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}

	if cfg.ProfileStore == "dynamo" {
		profiles = dialog.NewDynamoProfileStore(dynamodb.NewFromConfig(awsCfg), cfg.UserProfilesTable, logger)
		logger.Info("using dynamodb profile store", "table", cfg.UserProfilesTable)
	}

	imageExtractor := analyzer.NewExtractor(
		rekognition.NewFromConfig(awsCfg),
		bedrockruntime.NewFromConfig(awsCfg),
		cfg.BedrockModelID,
		logger,
		analyzer.WithHTTPClient(&http.Client{Timeout: cfg.ImageFetchTimeout}),
	)
	cartBuilder := cart.NewBuilder(cfg.ProcedureSearchURL, cfg.CartBaseURL, cfg.CartCity, logger)

	registry := dialog.NewRegistry()
	if err := intake.Register(registry, intake.Deps{
		Analyzer: imageExtractor,
		Cart:     cartBuilder,
		Logger:   logger,
		Metrics:  dialogMetrics,
	}); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("bootstrap: register dialogs: %w", err)
	}

	engine := dialog.NewEngine(registry, store, profiles, intake.PurchaseDialogID, logger,
		dialog.WithMaxDepth(cfg.MaxDialogDepth),
		dialog.WithMetrics(dialogMetrics),
	)

	var publisher *dialog.Publisher
	var worker *dialog.Worker

	chatwootClient := chatwoot.NewClient(cfg.ChatwootHost, cfg.ChatwootAPIVersion, cfg.ChatwootAccountID, cfg.ChatwootAccessToken)
	var whatsappClient *chatwoot.WhatsAppClient
	if cfg.WhatsAppAccessToken != "" && cfg.WhatsAppPhoneNumberID != "" {
		whatsappClient = chatwoot.NewWhatsAppClient(cfg.WhatsAppAPIVersion, cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID)
	} else {
		logger.Warn("whatsapp cloud api not configured; location requests fall back to text")
	}
	adapter := chatwoot.NewAdapter(chatwootClient, whatsappClient, logger)

	workerOpts := []dialog.WorkerOption{
		dialog.WithWorkerCount(cfg.WorkerCount),
		dialog.WithWorkerMetrics(dialogMetrics),
	}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("bootstrap: open database: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		workerOpts = append(workerOpts, dialog.WithTranscriptRecorder(transcript.NewStore(db)))
		logger.Info("transcript persistence enabled")
	}

	if cfg.UseMemoryQueue {
		memQueue := dialog.NewMemoryQueue(0)
		publisher = dialog.NewPublisher(memQueue, logger)
		worker = dialog.NewWorker(engine, memQueue, adapter, logger, workerOpts...)
		logger.Info("using in-memory turn queue")
	} else {
		if cfg.TurnQueueURL == "" {
			cleanup()
			return nil, nil, fmt.Errorf("bootstrap: TURN_QUEUE_URL is required when the memory queue is disabled")
		}
		sqsQueue := dialog.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.TurnQueueURL, logger)
		publisher = dialog.NewPublisher(sqsQueue, logger)
		worker = dialog.NewWorker(engine, sqsQueue, adapter, logger, workerOpts...)
		logger.Info("using sqs turn queue", "queue_url", cfg.TurnQueueURL)
	}

	return &Bot{
		Engine:    engine,
		Publisher: publisher,
		Worker:    worker,
		Metrics:   dialogMetrics,
	}, cleanup, nil
}
