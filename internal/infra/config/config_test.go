package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "test-token")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/coffee_test")
	t.Setenv("ADMIN_TELEGRAM_ID", "123456789")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("CRON_SPEC_OPEN_MATCHING", "")
	t.Setenv("CRON_SPEC_COMMIT_PAIRING", "")
	t.Setenv("RECENCY_WINDOW_DAYS", "")
	t.Setenv("COLLECTION_WINDOW_HOURS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.TelegramToken)
	assert.EqualValues(t, 123456789, cfg.AdminTelegramID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0 10 * * 1", cfg.CronSpecOpenMatching)
	assert.Equal(t, "0 10 * * 2", cfg.CronSpecCommitPairing)
	assert.Equal(t, 30, cfg.RecencyWindowDays)
	assert.Equal(t, 24, cfg.CollectionWindowHours)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CRON_SPEC_OPEN_MATCHING", "0 9 * * 3")
	t.Setenv("RECENCY_WINDOW_DAYS", "14")
	t.Setenv("COLLECTION_WINDOW_HOURS", "48")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "log level is normalized to lower case")
	assert.Equal(t, "0 9 * * 3", cfg.CronSpecOpenMatching)
	assert.Equal(t, 14, cfg.RecencyWindowDays)
	assert.Equal(t, 48, cfg.CollectionWindowHours)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
	}{
		{"missing telegram token", "TELEGRAM_TOKEN"},
		{"missing database url", "DATABASE_URL"},
		{"missing admin id", "ADMIN_TELEGRAM_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.envVar, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.envVar)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("non-numeric admin id", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("ADMIN_TELEGRAM_ID", "not-a-number")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("negative recency window", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("RECENCY_WINDOW_DAYS", "-1")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("zero collection window", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("COLLECTION_WINDOW_HOURS", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}
