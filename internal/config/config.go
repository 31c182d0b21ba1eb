package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"BhavSentinel/internal/calculator"
	"BhavSentinel/internal/ingest"
	"BhavSentinel/internal/logger"
	"BhavSentinel/internal/strategy"
)

// Source kinds.
const (
	SourceFile = "file"
	SourceHTTP = "http"
)

// Config holds all application configuration.
type Config struct {
	Source struct {
		Kind    string        `yaml:"kind"` // file or http
		Path    string        `yaml:"path"` // pattern, e.g. data/cm{date}bhav.csv
		URL     string        `yaml:"url"`  // pattern, e.g. https://host/{yyyy}/{MON}/cm{date}bhav.csv.zip
		Timeout time.Duration `yaml:"timeout"`
		Retry   struct {
			MaxAttempts int           `yaml:"max_attempts"`
			Backoff     time.Duration `yaml:"backoff"`
			MaxBackoff  time.Duration `yaml:"max_backoff"`
		} `yaml:"retry"`
	} `yaml:"source"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Redis struct {
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
		Timezone  string `yaml:"timezone"`
	} `yaml:"schedule"`
	Log     logger.Config `yaml:"log"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Indicators calculator.Params `yaml:"indicators"`
	Ranking    strategy.Config   `yaml:"ranking"`
	Series     []string          `yaml:"series"` // bhavcopy series kept, "*" for all
	Workers    int               `yaml:"workers"`
	History    int               `yaml:"history"`
	ReportTop  int               `yaml:"report_top"`
	Proxy      string            `yaml:"proxy"`
}

// Load reads .env, then the YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	cfg := &Config{
		Indicators: calculator.DefaultParams(),
		Ranking:    strategy.DefaultConfig(),
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SOURCE_KIND"); v != "" {
		cfg.Source.Kind = v
	}
	if v := os.Getenv("SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("WORKERS: %w", err)
		}
		cfg.Workers = n
	}

	// Defaults
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = SourceFile
		if cfg.Source.URL != "" {
			cfg.Source.Kind = SourceHTTP
		}
	}
	if cfg.Source.Path == "" {
		cfg.Source.Path = "data/cm{date}bhav.csv"
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 30 * time.Second
	}
	if cfg.Source.Retry.MaxAttempts == 0 {
		cfg.Source.Retry.MaxAttempts = 3
	}
	if cfg.Source.Retry.Backoff == 0 {
		cfg.Source.Retry.Backoff = 2 * time.Second
	}
	if cfg.Source.Retry.MaxBackoff == 0 {
		cfg.Source.Retry.MaxBackoff = time.Minute
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/bhav_sentinel.db"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "sentiment"
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 30 18 * * 1-5"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "Asia/Kolkata"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if len(cfg.Series) == 0 {
		cfg.Series = append([]string(nil), ingest.DefaultSeries...)
	}
	if cfg.ReportTop == 0 {
		cfg.ReportTop = 20
	}

	return cfg, nil
}

// Validate checks that all required fields are set and in range.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for file sources")
		}
	case SourceHTTP:
		if c.Source.URL == "" {
			return fmt.Errorf("source.url is required for http sources")
		}
	default:
		return fmt.Errorf("source.kind must be %q or %q, got %q", SourceFile, SourceHTTP, c.Source.Kind)
	}
	if c.Source.Retry.MaxAttempts < 1 {
		return fmt.Errorf("source.retry.max_attempts must be >= 1")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}
	if c.History < 0 {
		return fmt.Errorf("history must be >= 0")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if err := c.Indicators.Validate(); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	if err := c.Ranking.Validate(); err != nil {
		return fmt.Errorf("ranking: %w", err)
	}
	return nil
}
