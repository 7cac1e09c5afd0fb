package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medprev-labs/medy-bot/internal/channels/chatwoot"
	"github.com/medprev-labs/medy-bot/internal/dialog"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

type noopPublisher struct{ calls int }

func (p *noopPublisher) EnqueueTurn(ctx context.Context, input dialog.TurnInput) error {
	p.calls++
	return nil
}

func newTestRouter(t *testing.T, publisher chatwoot.TurnPublisher) http.Handler {
	t.Helper()
	return New(&Config{
		Logger:          logging.Default(),
		ChatwootWebhook: chatwoot.NewWebhookHandler(publisher, "", logging.Default()),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	})
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t, &noopPublisher{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRouter_ChatwootWebhookRoute(t *testing.T) {
	publisher := &noopPublisher{}
	r := newTestRouter(t, publisher)

	payload := `{
		"event": "message_created",
		"message_type": "incoming",
		"conversation": {
			"id": 42,
			"status": "pending",
			"messages": [{"id": 7, "content": "oi", "sender": {"id": 99, "name": "Rafaela"}}]
		}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/chatwoot", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if publisher.calls != 1 {
		t.Fatalf("expected one enqueued turn, got %d", publisher.calls)
	}
}

func TestRouter_MetricsRoute(t *testing.T) {
	r := newTestRouter(t, &noopPublisher{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	r := newTestRouter(t, &noopPublisher{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
