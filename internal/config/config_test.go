package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BEDROCK_MODEL_ID", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if !cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue enabled by default")
	}
	if cfg.BedrockModelID != "amazon.titan-tg1-large" {
		t.Fatalf("expected default bedrock model, got %s", cfg.BedrockModelID)
	}
	if cfg.MaxDialogDepth != 8 {
		t.Fatalf("expected default dialog depth, got %d", cfg.MaxDialogDepth)
	}
	if cfg.CartCity != "Curitiba" {
		t.Fatalf("expected default cart city, got %s", cfg.CartCity)
	}
	if cfg.ImageFetchTimeout != 15*time.Second {
		t.Fatalf("expected default image fetch timeout, got %s", cfg.ImageFetchTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("USE_MEMORY_QUEUE", "false")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("MAX_DIALOG_DEPTH", "4")
	t.Setenv("CHATWOOT_HOST", "https://chatwoot.example.com")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "12345")
	t.Setenv("IMAGE_FETCH_TIMEOUT", "45s")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue disabled")
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.MaxDialogDepth != 4 {
		t.Fatalf("expected dialog depth override, got %d", cfg.MaxDialogDepth)
	}
	if cfg.ChatwootHost != "https://chatwoot.example.com" {
		t.Fatalf("expected chatwoot host override, got %s", cfg.ChatwootHost)
	}
	if cfg.WhatsAppPhoneNumberID != "12345" {
		t.Fatalf("expected whatsapp phone number id override, got %s", cfg.WhatsAppPhoneNumberID)
	}
	if cfg.ImageFetchTimeout != 45*time.Second {
		t.Fatalf("expected image fetch timeout override, got %s", cfg.ImageFetchTimeout)
	}
}
