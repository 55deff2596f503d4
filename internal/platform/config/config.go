package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	// CORS
	AllowedOrigins []string

	// Rate limiting, in ulule/limiter formatted notation (e.g. "100-M").
	RateLimit string

	// Batch posting behaviour
	PostingMaxAttempts  int
	PostingRetryBackoff time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("ALLOWED_ORIGINS", "*")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("POSTING_MAX_ATTEMPTS", 3)
	viper.SetDefault("POSTING_RETRY_BACKOFF", "200ms")

	// Environment variables override defaults and any .env values.
	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.AllowedOrigins = viper.GetStringSlice("ALLOWED_ORIGINS")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	cfg.PostingMaxAttempts = viper.GetInt("POSTING_MAX_ATTEMPTS")
	if cfg.PostingMaxAttempts < 1 {
		log.Printf("Warning: Invalid POSTING_MAX_ATTEMPTS (%d). Defaulting to 3.\n", cfg.PostingMaxAttempts)
		cfg.PostingMaxAttempts = 3
	}

	backoffStr := viper.GetString("POSTING_RETRY_BACKOFF")
	backoff, err := time.ParseDuration(backoffStr)
	if err != nil {
		backoff = 200 * time.Millisecond
		log.Printf("Warning: Invalid value for POSTING_RETRY_BACKOFF ('%s'). Defaulting to %s.\n", backoffStr, backoff.String())
	}
	cfg.PostingRetryBackoff = backoff

	return cfg, nil
}
