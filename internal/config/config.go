package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	CORSAllowedHeaders []string
	CORSMaxAge         time.Duration

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Google Calendar
	GoogleCalendarTokenJSON string
	CalendarTimezone        string

	// Evolution API (WhatsApp)
	EvolutionBaseURL  string
	EvolutionAPIKey   string
	EvolutionInstance string

	// External reminder scheduler
	SchedulerBaseURL      string
	SchedulerAPIToken     string
	SchedulerWebhookURL   string
	SchedulerWebhookToken string
	ReminderLeadTime      time.Duration
	BookingLockTTL        time.Duration
	WebhookRateLimit      float64
	WebhookRateBurst      int

	// Knowledge embeddings
	EmbeddingProvider       string
	EmbeddingModel          string
	OpenAIAPIKey            string
	BedrockEmbeddingModelID string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Uploaded media files
	FilesBackend  string
	FilesBaseDir  string
	FilesBaseURL  string
	FilesS3Bucket string

	// Cost reporting
	ExchangeRateURL string
	ExchangeRateTTL time.Duration
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		CORSAllowedHeaders: getEnvAsList("CORS_ALLOWED_HEADERS"),
		CORSMaxAge:         getEnvAsDuration("CORS_MAX_AGE", 10*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		GoogleCalendarTokenJSON: getEnv("GOOGLE_CALENDAR_TOKEN_JSON", ""),
		CalendarTimezone:        getEnv("CALENDAR_TIMEZONE", "America/Sao_Paulo"),

		EvolutionBaseURL:  getEnv("BASE_URL_EVO", ""),
		EvolutionAPIKey:   getEnv("API_KEY_EVO", ""),
		EvolutionInstance: getEnv("INSTANCE_NAME", ""),

		SchedulerBaseURL:      getEnv("BASE_URL_SCHEDULER", ""),
		SchedulerAPIToken:     getEnv("API_TOKEN_SCHEDULER", ""),
		SchedulerWebhookURL:   getEnv("WEBHOOK_URL_SCHEDULER", ""),
		SchedulerWebhookToken: getEnv("SCHEDULER_WEBHOOK_TOKEN", ""),
		ReminderLeadTime:      getEnvAsDuration("REMINDER_LEAD_TIME", time.Hour),
		BookingLockTTL:        getEnvAsDuration("BOOKING_LOCK_TTL", 30*time.Second),
		WebhookRateLimit:      getEnvAsFloat("WEBHOOK_RATE_LIMIT", 5),
		WebhookRateBurst:      getEnvAsInt("WEBHOOK_RATE_BURST", 20),

		EmbeddingProvider:       strings.ToLower(strings.TrimSpace(getEnv("EMBEDDING_PROVIDER", "openai"))),
		EmbeddingModel:          getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		BedrockEmbeddingModelID: getEnv("BEDROCK_EMBEDDING_MODEL_ID", "amazon.titan-embed-text-v1"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		FilesBackend:  strings.ToLower(strings.TrimSpace(getEnv("FILES_BACKEND", "disk"))),
		FilesBaseDir:  getEnv("FILES_BASE_DIR", "./public/files"),
		FilesBaseURL:  getEnv("FILES_BASE_URL", ""),
		FilesS3Bucket: getEnv("FILES_S3_BUCKET", ""),

		ExchangeRateURL: getEnv("EXCHANGE_RATE_URL", "https://economia.awesomeapi.com.br/last/USD-BRL"),
		ExchangeRateTTL: getEnvAsDuration("EXCHANGE_RATE_TTL", time.Hour),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
