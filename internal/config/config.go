// Package config manages application configuration
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"

	// Database
	DatabaseURL string

	// Security
	SecretKey string // For JWT signing

	// Session settings
	SessionDuration time.Duration

	// Portfolio conventions
	BaseCurrency    string
	BenchmarkSymbol string

	// Risk computation policy
	RiskWindowDays      int
	PeriodsPerYear      float64
	VaRConfidence       float64
	SeverityInfoOver    float64 // breach fraction over threshold still classed info
	SeverityWarningOver float64 // upper bound of the warning band

	// Snapshot scheduling (cron spec, empty disables the scheduler)
	SnapshotSchedule string
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		Port:                getEnv("PRI_PORT", "8080"),
		Environment:         getEnv("PRI_ENV", "development"),
		DatabaseURL:         getEnv("PRI_DATABASE_URL", "portfolio_risk.db"),
		SecretKey:           getEnv("PRI_SECRET_KEY", "dev-secret-key-change-in-production"),
		SessionDuration:     getDurationEnv("PRI_SESSION_DURATION", 24*time.Hour),
		BaseCurrency:        getEnv("PRI_BASE_CURRENCY", "INR"),
		BenchmarkSymbol:     getEnv("PRI_BENCHMARK_SYMBOL", "^NSEI"),
		RiskWindowDays:      getIntEnv("PRI_RISK_WINDOW_DAYS", 252),
		PeriodsPerYear:      getFloatEnv("PRI_PERIODS_PER_YEAR", 252),
		VaRConfidence:       getFloatEnv("PRI_VAR_CONFIDENCE", 0.95),
		SeverityInfoOver:    getFloatEnv("PRI_SEVERITY_INFO_OVER", 0.10),
		SeverityWarningOver: getFloatEnv("PRI_SEVERITY_WARNING_OVER", 0.25),
		SnapshotSchedule:    getEnv("PRI_SNAPSHOT_SCHEDULE", "0 30 18 * * *"),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
