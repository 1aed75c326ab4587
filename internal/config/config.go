// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Settlement-request policy values.
const (
	RequestAnyMember  = "any-member"
	RequestDebtorOnly = "debtor-only"
)

// Reopen scope values.
const (
	ReopenAll       = "all"
	ReopenLastBatch = "last-batch"
)

// Config carries all runtime settings.
type Config struct {
	Port   int
	DBPath string

	JWTSecret string
	TokenTTL  time.Duration

	// DefaultCredits is granted to self-registered accounts.
	DefaultCredits int

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	// SettlementRequestPolicy controls who may request settlement:
	// any member with view rights, or only members holding a negative
	// net balance.
	SettlementRequestPolicy string

	// ReopenScope controls whether reopening a group resets every expense
	// or only the most recent settlement batch.
	ReopenScope string
}

// Load reads configuration from the environment with defaults.
func Load() Config {
	return Config{
		Port:                    getEnvInt("PORT", 8080),
		DBPath:                  getEnv("DB_PATH", "./data/expenses.db"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		TokenTTL:                getEnvDuration("TOKEN_TTL", 24*time.Hour),
		DefaultCredits:          getEnvInt("DEFAULT_CREDITS", 3),
		RazorpayKeyID:           getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:       getEnv("RAZORPAY_KEY_SECRET", ""),
		RazorpayWebhookSecret:   getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
		SettlementRequestPolicy: getEnv("SETTLEMENT_REQUEST_POLICY", RequestAnyMember),
		ReopenScope:             getEnv("REOPEN_SCOPE", ReopenAll),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
