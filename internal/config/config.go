package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr         string        `yaml:"addr" validate:"required"`
		CORSOrigins  []string      `yaml:"cors_origins"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`
	DataSource struct {
		Provider string        `yaml:"provider" validate:"oneof=yahoo rest"`
		BaseURL  string        `yaml:"base_url" validate:"required_if=Provider rest"`
		APIKey   string        `yaml:"api_key"`
		Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
	} `yaml:"data_source"`
	Cache struct {
		Backend       string        `yaml:"backend" validate:"oneof=memory redis"`
		RedisAddr     string        `yaml:"redis_addr" validate:"required_if=Backend redis"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
		SeriesTTL     time.Duration `yaml:"series_ttl" validate:"gt=0"`
		MetadataTTL   time.Duration `yaml:"metadata_ttl" validate:"gt=0"`
	} `yaml:"cache"`
	Store struct {
		Driver       string `yaml:"driver" validate:"oneof=memory sqlite postgres"`
		DSN          string `yaml:"dsn" validate:"required_unless=Driver memory"`
		HistoryLimit int    `yaml:"history_limit" validate:"gt=0"`
	} `yaml:"store"`
	Portfolio struct {
		BookFile string `yaml:"book_file"`
	} `yaml:"portfolio"`
	Export struct {
		Dir       string   `yaml:"dir"`
		Cron      string   `yaml:"cron"`
		Watchlist []string `yaml:"watchlist"`
		Period    string   `yaml:"period"`
	} `yaml:"export"`
	Telegram struct {
		BotToken   string `yaml:"bot_token"`
		ChatID     string `yaml:"chat_id" validate:"required_with=BotToken"`
		DigestCron string `yaml:"digest_cron"`
	} `yaml:"telegram"`
	Log struct {
		Level   string `yaml:"level" validate:"oneof=debug info warn error"`
		Format  string `yaml:"format" validate:"oneof=json text"`
		Tracing bool   `yaml:"tracing"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads a .env file if present, then the YAML config, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

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

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("MARKETLENS_ADDR", &cfg.Server.Addr)
	str("DATA_PROVIDER", &cfg.DataSource.Provider)
	str("DATA_BASE_URL", &cfg.DataSource.BaseURL)
	str("DATA_API_KEY", &cfg.DataSource.APIKey)
	str("CACHE_BACKEND", &cfg.Cache.Backend)
	str("REDIS_ADDR", &cfg.Cache.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	str("STORE_DRIVER", &cfg.Store.Driver)
	str("STORE_DSN", &cfg.Store.DSN)
	str("EXPORT_DIR", &cfg.Export.Dir)
	str("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("HTTPS_PROXY", &cfg.Proxy)

	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.RedisDB = db
		}
	}
	if v := os.Getenv("EXPORT_WATCHLIST"); v != "" {
		cfg.Export.Watchlist = splitList(v)
	}
	if v := os.Getenv("LOG_TRACING"); v != "" {
		cfg.Log.Tracing = v == "true" || v == "1"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.DataSource.Timeout == 0 {
		cfg.DataSource.Timeout = 30 * time.Second
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.SeriesTTL == 0 {
		cfg.Cache.SeriesTTL = 5 * time.Minute
	}
	if cfg.Cache.MetadataTTL == 0 {
		cfg.Cache.MetadataTTL = time.Hour
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.DSN == "" && cfg.Store.Driver == "sqlite" {
		cfg.Store.DSN = "data/marketlens.db"
	}
	if cfg.Store.HistoryLimit == 0 {
		cfg.Store.HistoryLimit = 10
	}
	if cfg.Portfolio.BookFile == "" {
		cfg.Portfolio.BookFile = "data/portfolios.json"
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "exports"
	}
	if cfg.Export.Cron == "" {
		cfg.Export.Cron = "0 0 22 * * 1-5"
	}
	if cfg.Export.Period == "" {
		cfg.Export.Period = "1y"
	}
	if cfg.Telegram.DigestCron == "" {
		cfg.Telegram.DigestCron = "0 30 22 * * 1-5"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// TelegramEnabled reports whether digest notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
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
