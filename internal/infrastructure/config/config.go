package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"tzweb/internal/domain/model"
)

type Config struct {
	Browser struct {
		CDPURL        string `toml:"cdp_url"`
		TabFilter     string `toml:"tab_filter"`
		EvalTimeoutMs int    `toml:"eval_timeout_ms"`
	} `toml:"browser"`

	Click struct {
		TimeoutMs        int `toml:"timeout_ms"`
		InterceptPauseMs int `toml:"intercept_pause_ms"`
		BareAttempts     int `toml:"bare_attempts"`
	} `toml:"click"`

	Portfolio struct {
		Schema   string `toml:"schema"`
		SettleMs int    `toml:"settle_ms"`
	} `toml:"portfolio"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`

	Storage struct {
		Enabled bool `toml:"enabled"`

		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`

		Redis struct {
			Enabled      bool   `toml:"enabled"`
			Addr         string `toml:"addr"`
			Password     string `toml:"password"`
			DB           int    `toml:"db"`
			Prefix       string `toml:"prefix"`
			TTLSeconds   int    `toml:"ttl_seconds"`
			CancelStream string `toml:"cancel_stream"`
			CancelChan   string `toml:"cancel_channel"`
		} `toml:"redis"`
	} `toml:"storage"`

	Export struct {
		ParquetDir string `toml:"parquet_dir"`
	} `toml:"export"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 未提供配置文件时使用
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Browser.CDPURL) == "" {
		cfg.Browser.CDPURL = "http://127.0.0.1:9222"
	}
	if strings.TrimSpace(cfg.Browser.TabFilter) == "" {
		cfg.Browser.TabFilter = "tradezeroweb"
	}
	if cfg.Browser.EvalTimeoutMs <= 0 {
		cfg.Browser.EvalTimeoutMs = 5000
	}
	if cfg.Click.TimeoutMs <= 0 {
		cfg.Click.TimeoutMs = 10000
	}
	if cfg.Click.InterceptPauseMs <= 0 {
		cfg.Click.InterceptPauseMs = 1000
	}
	if cfg.Click.BareAttempts <= 0 {
		cfg.Click.BareAttempts = 3
	}
	if cfg.Portfolio.SettleMs <= 0 {
		cfg.Portfolio.SettleMs = 2000
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
		cfg.Storage.SQLite.Path = "data/tzweb.db"
	}
	if strings.TrimSpace(cfg.Storage.Redis.Prefix) == "" {
		cfg.Storage.Redis.Prefix = "tzweb"
	}
}

func validate(cfg *Config) error {
	u, err := url.Parse(strings.TrimSpace(cfg.Browser.CDPURL))
	if err != nil {
		return fmt.Errorf("browser.cdp_url: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("browser.cdp_url: unsupported scheme %q", u.Scheme)
	}

	if _, err := model.ParseSchemaVariant(cfg.Portfolio.Schema); err != nil {
		return fmt.Errorf("portfolio.schema: %w", err)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("storage.redis.addr empty but enabled")
	}
	return nil
}

func (c *Config) EvalTimeout() time.Duration {
	return time.Duration(c.Browser.EvalTimeoutMs) * time.Millisecond
}

func (c *Config) ClickTimeout() time.Duration {
	return time.Duration(c.Click.TimeoutMs) * time.Millisecond
}

func (c *Config) InterceptPause() time.Duration {
	return time.Duration(c.Click.InterceptPauseMs) * time.Millisecond
}

func (c *Config) SettlePause() time.Duration {
	return time.Duration(c.Portfolio.SettleMs) * time.Millisecond
}

// SchemaVariant 已在 validate 中校验
func (c *Config) SchemaVariant() model.SchemaVariant {
	v, _ := model.ParseSchemaVariant(c.Portfolio.Schema)
	return v
}
