package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Database    DatabaseConfig    `yaml:"database"`
	JWT         JWTConfig         `yaml:"jwt"`
	Redis       RedisConfig       `yaml:"redis"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"SERVER_HOST"`
	Port string `yaml:"port" env:"SERVER_PORT"`
	Mode string `yaml:"mode" env:"SERVER_MODE"` // debug, release, test
	// AllowOrigins lists the browser origins allowed by CORS; empty allows any
	AllowOrigins []string `yaml:"allow_origins" env:"SERVER_ALLOW_ORIGINS" envSeparator:","`
}

type LogConfig struct {
	Level         string `yaml:"level" env:"LOG_LEVEL"`
	RetentionDays int    `yaml:"retention_days" env:"LOG_RETENTION_DAYS"` // system_logs rows, 0 keeps forever
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DB_DRIVER"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn" env:"DB_DSN"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret" env:"JWT_SECRET"`
	ExpireHour int    `yaml:"expire_hour" env:"JWT_EXPIRE_HOUR"`
}

// RedisConfig for the optional async event queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED"`
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// MarketplaceConfig holds the engagement defaults applied when a caller
// leaves a field empty.
type MarketplaceConfig struct {
	DefaultCurrency       string `yaml:"default_currency" env:"MARKET_DEFAULT_CURRENCY"`
	DefaultRevisionRounds int    `yaml:"default_revision_rounds" env:"MARKET_DEFAULT_REVISION_ROUNDS"`
	DefaultDeliveryDays   int    `yaml:"default_delivery_days" env:"MARKET_DEFAULT_DELIVERY_DAYS"`
	QuoteTTLHours         int    `yaml:"quote_ttl_hours" env:"MARKET_QUOTE_TTL_HOURS"`
	ExpiryEnabled         bool   `yaml:"expiry_enabled" env:"MARKET_EXPIRY_ENABLED"`
	ExpirySchedule        string `yaml:"expiry_schedule" env:"MARKET_EXPIRY_SCHEDULE"` // cron expression
	CalendarCountry       string `yaml:"calendar_country" env:"MARKET_CALENDAR_COUNTRY"`
}

var GlobalConfig *Config

// Load reads configuration from configPath, falling back to defaults when
// the file does not exist. A .env file in the working directory and the
// process environment override file values.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	// .env is optional
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Log: LogConfig{
			Level:         "info",
			RetentionDays: 90,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "rendermarket.db",
		},
		JWT: JWTConfig{
			Secret:     "rendermarket-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		RateLimit: RateLimitConfig{
			RPS:   20,
			Burst: 40,
		},
		Marketplace: MarketplaceConfig{
			DefaultCurrency:       "BRL",
			DefaultRevisionRounds: 1,
			DefaultDeliveryDays:   7,
			QuoteTTLHours:         24 * 7,
			ExpiryEnabled:         true,
			ExpirySchedule:        "*/15 * * * *",
			CalendarCountry:       "BR",
		},
	}
}

func (c *Config) overrideFromEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		if err := c.parseRedisURL(redisURL); err != nil {
			return err
		}
		c.Redis.Enabled = true
	}
	return nil
}

// parseRedisURL sets redis connection values from a redis:// URL.
func (c *Config) parseRedisURL(redisURL string) error {
	u, err := url.Parse(redisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid REDIS_URL: missing host")
	}
	c.Redis.Addr = u.Host
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			c.Redis.Password = pw
		}
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL database %q", db)
		}
		c.Redis.DB = n
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.JWT.ExpireHour <= 0 {
		return fmt.Errorf("jwt.expire_hour must be positive")
	}
	m := c.Marketplace
	if m.DefaultRevisionRounds < 1 {
		return fmt.Errorf("marketplace.default_revision_rounds must be at least 1")
	}
	if m.DefaultDeliveryDays < 1 {
		return fmt.Errorf("marketplace.default_delivery_days must be at least 1")
	}
	if m.QuoteTTLHours < 1 {
		return fmt.Errorf("marketplace.quote_ttl_hours must be at least 1")
	}
	if len(m.DefaultCurrency) != 3 {
		return fmt.Errorf("marketplace.default_currency must be an ISO 4217 code")
	}
	return nil
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
