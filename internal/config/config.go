package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Logging struct {
		Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" validate:"oneof=console json"`
	} `yaml:"logging"`
	Analysis struct {
		WindowDays int `yaml:"window_days" validate:"gt=0"`
		RecentRows int `yaml:"recent_rows" validate:"gt=0"`
	} `yaml:"analysis"`
	DataSource struct {
		Proxy            string        `yaml:"proxy" validate:"omitempty,url"`
		Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
		YahooBaseURL     string        `yaml:"yahoo_base_url" validate:"omitempty,url"`
		YahooRPS         float64       `yaml:"yahoo_rps" validate:"gt=0"`
		EastMoneyBaseURL string        `yaml:"eastmoney_base_url" validate:"omitempty,url"`
		EastMoneyRPS     float64       `yaml:"eastmoney_rps" validate:"gt=0"`
		AlpacaAPIKey     string        `yaml:"alpaca_api_key"`
		AlpacaSecretKey  string        `yaml:"alpaca_secret_key" validate:"required_with=AlpacaAPIKey"`
	} `yaml:"data_source"`
	Cache struct {
		Enabled bool          `yaml:"enabled"`
		Path    string        `yaml:"path" validate:"required_if=Enabled true"`
		TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
	} `yaml:"cache"`
	Watch struct {
		Symbols            []string `yaml:"symbols" validate:"dive,required"`
		Cron               string   `yaml:"cron" validate:"required"`
		NotifyOnChangeOnly bool     `yaml:"notify_on_change_only"`
		StateFile          string   `yaml:"state_file" validate:"required"`
		RunOnStart         bool     `yaml:"run_on_start"`
	} `yaml:"watch"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.DataSource.Proxy = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.DataSource.AlpacaAPIKey = v
	}
	if v := os.Getenv("ALPACA_SECRET_KEY"); v != "" {
		c.DataSource.AlpacaSecretKey = v
	}
	if v := os.Getenv("WATCH_SYMBOLS"); v != "" {
		c.Watch.Symbols = splitList(v)
	}
	if v := os.Getenv("CRON_WATCH"); v != "" {
		c.Watch.Cron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv("ANALYSIS_WINDOW_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ANALYSIS_WINDOW_DAYS: %w", err)
		}
		c.Analysis.WindowDays = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Analysis.WindowDays == 0 {
		c.Analysis.WindowDays = 60
	}
	if c.Analysis.RecentRows == 0 {
		c.Analysis.RecentRows = 20
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 15 * time.Second
	}
	if c.DataSource.YahooRPS == 0 {
		c.DataSource.YahooRPS = 2
	}
	if c.DataSource.EastMoneyRPS == 0 {
		c.DataSource.EastMoneyRPS = 5
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "data/cache"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 6 * time.Hour
	}
	if c.Watch.Cron == "" {
		c.Watch.Cron = "0 30 15 * * 1-5"
	}
	if c.Watch.StateFile == "" {
		c.Watch.StateFile = "data/watch_state.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/strength_sentinel.db"
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks field constraints and the settings each mode depends on.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidateWatch additionally requires a watchlist for the watch command.
func (c *Config) ValidateWatch() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Watch.Symbols) == 0 {
		return fmt.Errorf("watch.symbols is required")
	}
	return nil
}

// TelegramEnabled reports whether notifications can be delivered.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// AlpacaEnabled reports whether US bars can be fetched from Alpaca.
func (c *Config) AlpacaEnabled() bool {
	return c.DataSource.AlpacaAPIKey != "" && c.DataSource.AlpacaSecretKey != ""
}
