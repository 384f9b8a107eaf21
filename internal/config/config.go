// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// Database
	DatabaseURL string

	// Authentication
	JWTSecret string
	JWTExpiry time.Duration

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string

	// OpenAI
	OpenAIAPIKey string
	OpenAIModel  string

	// CORS
	CORSOrigins []string

	// Quotas
	DailyPersonaLimit int // Max persona generations per user per day
	WelcomeBonus      int // Tokens granted to a brand-new user (0 = disabled)

	// Cleanup / retention
	CleanupEnabled    bool
	CleanupInterval   time.Duration // How often the cleanup pass runs (default 24h)
	RecordRetention   time.Duration // Max age of optimizations and unsaved personas (default 30 days)
	UsageLogRetention time.Duration // Max age of usage logs (default 90 days)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file:promptapi.db?_journal=WAL&_timeout=5000"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: getEnvDuration("JWT_EXPIRY", 720*time.Hour),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),

		DailyPersonaLimit: getEnvInt("DAILY_PERSONA_LIMIT", 20),
		WelcomeBonus:      getEnvInt("WELCOME_BONUS_TOKENS", 0),
	}

	cfg.CheckoutSuccessURL = getEnv("CHECKOUT_SUCCESS_URL", cfg.BaseURL+"/purchase/success")
	cfg.CheckoutCancelURL = getEnv("CHECKOUT_CANCEL_URL", cfg.BaseURL+"/purchase/cancelled")

	// Cleanup configuration
	cfg.CleanupEnabled = getEnvBool("CLEANUP_ENABLED", true)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour)
	cfg.RecordRetention = getEnvDuration("RECORD_RETENTION", 30*24*time.Hour)
	cfg.UsageLogRetention = getEnvDuration("USAGE_LOG_RETENTION", 90*24*time.Hour)

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
