package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	UseMemoryQueue bool
	WorkerCount    int
	MaxDialogDepth int

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	ProfileStore      string // "redis" or "dynamo"
	UserProfilesTable string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	TurnQueueURL        string
	BedrockModelID      string

	ChatwootHost         string
	ChatwootAPIVersion   string
	ChatwootAccountID    string
	ChatwootAccessToken  string
	ChatwootWebhookToken string

	WhatsAppAPIVersion    string
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string

	ProcedureSearchURL string
	CartBaseURL        string
	CartCity           string

	ImageFetchTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", true),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),
		MaxDialogDepth: getEnvAsInt("MAX_DIALOG_DEPTH", 8),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		ProfileStore:      getEnv("PROFILE_STORE", "redis"),
		UserProfilesTable: getEnv("USER_PROFILES_TABLE", "medy-user-profiles"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		TurnQueueURL:        getEnv("TURN_QUEUE_URL", ""),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", "amazon.titan-tg1-large"),

		ChatwootHost:         getEnv("CHATWOOT_HOST", ""),
		ChatwootAPIVersion:   getEnv("CHATWOOT_API_VERSION", "v1"),
		ChatwootAccountID:    getEnv("CHATWOOT_BOT_ACCOUNT_ID", ""),
		ChatwootAccessToken:  getEnv("CHATWOOT_BOT_ACCESS_TOKEN", ""),
		ChatwootWebhookToken: getEnv("CHATWOOT_WEBHOOK_TOKEN", ""),

		WhatsAppAPIVersion:    getEnv("WHATSAPP_API_VERSION", "v18.0"),
		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),

		ProcedureSearchURL: getEnv("PROCEDURE_SEARCH_URL", "https://rest.medprev.app"),
		CartBaseURL:        getEnv("CART_BASE_URL", "https://agendamento.medprev.online/busca/exames-laboratoriais"),
		CartCity:           getEnv("CART_CITY", "Curitiba"),

		ImageFetchTimeout: getEnvAsDuration("IMAGE_FETCH_TIMEOUT", 15*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
