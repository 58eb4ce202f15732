package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken         string
	DatabaseURL           string
	AdminTelegramID       int64
	LogLevel              string
	Environment           string
	CronSpecOpenMatching  string // weekly trigger that opens the collection window
	CronSpecCommitPairing string // weekly trigger that commits pairs
	RecencyWindowDays     int    // cooldown before two members may be paired again
	CollectionWindowHours int    // deadline offset for a freshly opened session
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CronSpecOpenMatching = os.Getenv("CRON_SPEC_OPEN_MATCHING")
	if cfg.CronSpecOpenMatching == "" {
		cfg.CronSpecOpenMatching = "0 10 * * 1" // Default: 10:00 on Monday
	}
	cfg.CronSpecCommitPairing = os.Getenv("CRON_SPEC_COMMIT_PAIRING")
	if cfg.CronSpecCommitPairing == "" {
		cfg.CronSpecCommitPairing = "0 10 * * 2" // Default: 10:00 on Tuesday
	}

	cfg.RecencyWindowDays = 30
	if windowStr := os.Getenv("RECENCY_WINDOW_DAYS"); windowStr != "" {
		cfg.RecencyWindowDays, err = strconv.Atoi(windowStr)
		if err != nil || cfg.RecencyWindowDays < 0 {
			return nil, fmt.Errorf("invalid RECENCY_WINDOW_DAYS: %q", windowStr)
		}
	}

	cfg.CollectionWindowHours = 24
	if hoursStr := os.Getenv("COLLECTION_WINDOW_HOURS"); hoursStr != "" {
		cfg.CollectionWindowHours, err = strconv.Atoi(hoursStr)
		if err != nil || cfg.CollectionWindowHours <= 0 {
			return nil, fmt.Errorf("invalid COLLECTION_WINDOW_HOURS: %q", hoursStr)
		}
	}

	return cfg, nil
}
