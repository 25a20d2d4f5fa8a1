// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	DevMode  bool
	LogLevel string

	// DefaultAgentID scopes activity that arrives without an agent identity
	DefaultAgentID string

	// SolRate converts quote-currency P&L to SOL display units.
	// Zero disables conversion (figures pass through at rate 1).
	SolRate float64

	// FeedURL is the WebSocket endpoint of the live agent feed.
	// Empty disables the feed client.
	FeedURL string

	// SweepSchedule is the cron expression for the reconciliation sweep
	SweepSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic:
	// TALLY_DATA_DIR, else ./data, always resolved to an absolute path
	// that is created if missing.
	dataDir := getEnv("TALLY_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		Port:           getEnvAsInt("TALLY_PORT", 8090),
		DevMode:        getEnvAsBool("TALLY_DEV_MODE", false),
		LogLevel:       getEnv("TALLY_LOG_LEVEL", "info"),
		DefaultAgentID: getEnv("TALLY_DEFAULT_AGENT", "default"),
		SolRate:        getEnvAsFloat("TALLY_SOL_RATE", 0),
		FeedURL:        getEnv("TALLY_FEED_URL", ""),
		SweepSchedule:  getEnv("TALLY_SWEEP_SCHEDULE", "0 */10 * * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SolRate < 0 {
		return fmt.Errorf("sol rate must not be negative, got %f", c.SolRate)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
