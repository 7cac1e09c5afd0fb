package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medprev-labs/medy-bot/internal/channels/chatwoot"
	httpmiddleware "github.com/medprev-labs/medy-bot/internal/http/middleware"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	ChatwootWebhook *chatwoot.WebhookHandler
	MetricsHandler  http.Handler
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.ChatwootWebhook != nil {
		r.Post("/webhooks/chatwoot", cfg.ChatwootWebhook.HandleInbound)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
