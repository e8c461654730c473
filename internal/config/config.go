package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Tesseract-Nexus/go-shared/secrets"
)

// PlatformCredentials is the app-level API key/secret/signing key triple
// read from env for one platform kind.
type PlatformCredentials struct {
	APIKey            string
	APISecret         string
	WebhookSigningKey string
}

// Config holds all configuration for the inventory sync engine.
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// GCP
	GCPProjectID string

	// Cache / eventing backends
	RedisURL string
	NATSURL  string

	// Sync Settings
	SyncBatchSize  int
	SyncMaxRetries int
	SyncRetryDelay time.Duration
	SyncTimeout    time.Duration

	// Rate Limiting
	DefaultRateLimit int // requests per second

	// Webhook Base URL (for registering webhooks with platforms)
	WebhookBaseURL string

	// Adaptive dispatcher thresholds (spec.md §4.8, §6)
	ThresholdReqPerSec      int
	HighTrafficDurationSecs int
	ScaleDownIdleSecs       int

	// Per-platform credentials
	Shopify  PlatformCredentials
	Square   PlatformCredentials
	Clover   PlatformCredentials
	Ebay     PlatformCredentials
	Facebook PlatformCredentials
	Whatnot  PlatformCredentials
}

// Load loads configuration from environment variables, first layering in
// a local .env file if one is present (development/compose convenience;
// absence of the file is not an error).
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file loaded")
	}

	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := secrets.GetDBPassword()
		dbName := getEnv("DB_NAME", "inventory_sync")
		dbSSLMode := getEnv("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	}

	config := &Config{
		Port:        getEnv("PORT", "8099"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: databaseURL,

		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
		NATSURL:  getEnv("NATS_URL", "nats://nats.nats.svc.cluster.local:4222"),

		SyncBatchSize:  getEnvAsInt("SYNC_BATCH_SIZE", 100),
		SyncMaxRetries: getEnvAsInt("SYNC_MAX_RETRIES", 3),
		SyncRetryDelay: getEnvAsDuration("SYNC_RETRY_DELAY", 5*time.Second),
		SyncTimeout:    getEnvAsDuration("SYNC_TIMEOUT", 30*time.Minute),

		DefaultRateLimit: getEnvAsInt("DEFAULT_RATE_LIMIT", 10),

		WebhookBaseURL: getEnv("WEBHOOK_BASE_URL", ""),

		ThresholdReqPerSec:      getEnvAsInt("THRESHOLD_REQ_PER_SEC", 5),
		HighTrafficDurationSecs: getEnvAsInt("HIGH_TRAFFIC_DURATION_SECS", 15),
		ScaleDownIdleSecs:       getEnvAsInt("SCALE_DOWN_IDLE_SECS", 60),

		Shopify: PlatformCredentials{
			APIKey:            getEnv("SHOPIFY_API_KEY", ""),
			APISecret:         getEnv("SHOPIFY_API_SECRET", ""),
			WebhookSigningKey: getEnv("SHOPIFY_WEBHOOK_SECRET", ""),
		},
		Square: PlatformCredentials{
			APIKey:            getEnv("SQUARE_API_KEY", ""),
			APISecret:         getEnv("SQUARE_API_SECRET", ""),
			WebhookSigningKey: getEnv("SQUARE_WEBHOOK_SIGNATURE_KEY", ""),
		},
		Clover: PlatformCredentials{
			APIKey:            getEnv("CLOVER_API_KEY", ""),
			APISecret:         getEnv("CLOVER_API_SECRET", ""),
			WebhookSigningKey: getEnv("CLOVER_WEBHOOK_SECRET", ""),
		},
		Ebay: PlatformCredentials{
			APIKey:            getEnv("EBAY_API_KEY", ""),
			APISecret:         getEnv("EBAY_API_SECRET", ""),
			WebhookSigningKey: getEnv("EBAY_WEBHOOK_SECRET", ""),
		},
		Facebook: PlatformCredentials{
			APIKey:            getEnv("FACEBOOK_API_KEY", ""),
			APISecret:         getEnv("FACEBOOK_API_SECRET", ""),
			WebhookSigningKey: getEnv("FACEBOOK_WEBHOOK_SECRET", ""),
		},
		Whatnot: PlatformCredentials{
			APIKey:            getEnv("WHATNOT_API_KEY", ""),
			APISecret:         getEnv("WHATNOT_API_SECRET", ""),
			WebhookSigningKey: getEnv("WHATNOT_WEBHOOK_SECRET", ""),
		},
	}

	if config.DatabaseURL == "" {
		logrus.Fatal("DATABASE_URL is required")
	}

	if config.GCPProjectID == "" {
		logrus.Warn("GCP_PROJECT_ID not set, secrets management will be disabled")
	}

	return config
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
