package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"LOG_LEVEL", "LOG_FORMAT", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "HTTPS_PROXY",
	"ALPACA_API_KEY", "ALPACA_SECRET_KEY", "WATCH_SYMBOLS", "CRON_WATCH", "SQLITE_PATH",
	"CACHE_PATH", "ANALYSIS_WINDOW_DAYS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 60, cfg.Analysis.WindowDays)
	assert.Equal(t, 20, cfg.Analysis.RecentRows)
	assert.Equal(t, 15*time.Second, cfg.DataSource.Timeout)
	assert.Equal(t, "0 30 15 * * 1-5", cfg.Watch.Cron)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.TelegramEnabled())
	assert.False(t, cfg.AlpacaEnabled())
	assert.Error(t, cfg.ValidateWatch(), "watch needs symbols")
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
logging:
  level: debug
  format: json
analysis:
  window_days: 90
data_source:
  timeout: 5s
  eastmoney_rps: 1.5
cache:
  enabled: true
  ttl: 30m
watch:
  symbols: ["600519", "AAPL"]
  notify_on_change_only: true
telegram:
  bot_token: file-token
  chat_id: "42"
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("WATCH_SYMBOLS", "0700.HK, 300750 ,")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 90, cfg.Analysis.WindowDays)
	assert.Equal(t, 5*time.Second, cfg.DataSource.Timeout)
	assert.Equal(t, 1.5, cfg.DataSource.EastMoneyRPS)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, []string{"0700.HK", "300750"}, cfg.Watch.Symbols)
	assert.True(t, cfg.Watch.NotifyOnChangeOnly)
	assert.True(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.ValidateWatch())
}

func TestLoad_BadWindowEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANALYSIS_WINDOW_DAYS", "sixty")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "ANALYSIS_WINDOW_DAYS")
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "logging: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Telegram.BotToken = "token"
	assert.ErrorContains(t, cfg.Validate(), "ChatID")

	cfg = base()
	cfg.DataSource.AlpacaAPIKey = "key"
	assert.ErrorContains(t, cfg.Validate(), "AlpacaSecretKey")

	cfg = base()
	cfg.Logging.Level = "verbose"
	assert.ErrorContains(t, cfg.Validate(), "Level")

	cfg = base()
	cfg.DataSource.Proxy = "not a url"
	assert.ErrorContains(t, cfg.Validate(), "Proxy")

	cfg = base()
	cfg.Analysis.WindowDays = -1
	assert.ErrorContains(t, cfg.Validate(), "WindowDays")
}
