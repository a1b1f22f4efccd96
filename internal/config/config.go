package config

import (
	"os"
	"strconv"
	"time"

	"ovation/internal/cache"
	"ovation/internal/database"
	"ovation/internal/external"
	"ovation/internal/messaging"
)

// Config holds the full application configuration, loaded from env vars.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Inventory timing knobs.
	HoldTTL        time.Duration
	PaymentTTL     time.Duration
	ReaperInterval time.Duration
	ReaperDebounce time.Duration

	Database database.Config
	NATS     messaging.Config
	Cache    cache.Config
	Payment  external.PaymentConfig
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		HoldTTL:        time.Duration(getEnvInt("HOLD_TTL_MIN", 30)) * time.Minute,
		PaymentTTL:     time.Duration(getEnvInt("PAYMENT_TTL_MIN", 15)) * time.Minute,
		ReaperInterval: time.Duration(getEnvInt("REAPER_INTERVAL_SEC", 30)) * time.Second,
		ReaperDebounce: time.Duration(getEnvInt("REAPER_DEBOUNCE_SEC", 20)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "ovation"),
			Password:           getEnv("DB_PASSWORD", "ovation123"),
			DBName:             getEnv("DB_NAME", "ovation"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "ovation"),
			ClientID:  getEnv("NATS_CLIENT_ID", "ovation-api"),
		},

		Cache: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			TTL:      time.Duration(getEnvInt("AVAILABILITY_CACHE_TTL_SEC", 2)) * time.Second,
		},

		Payment: external.PaymentConfig{
			BaseURL:  getEnv("PAYMENT_GATEWAY_URL", "http://localhost:9090"),
			Merchant: getEnv("PAYMENT_MERCHANT", ""),
			Secret:   getEnv("PAYMENT_SECRET", ""),
			Timeout:  time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
