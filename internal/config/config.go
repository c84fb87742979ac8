// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

// UpstreamConfig describes the completion endpoint every turn is sent to.
type UpstreamConfig struct {
	BaseURL string `yaml:"base_url"` // e.g., https://api.openai.com/v1
	// APIKey is the process-wide fallback credential. It may be empty when
	// every caller supplies its own key per request.
	APIKey          string        `yaml:"api_key"`
	DefaultModel    string        `yaml:"default_model"`
	SystemPrompt    string        `yaml:"system_prompt"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	Timeout         time.Duration `yaml:"timeout"`          // sync calls only
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max in-flight upstream calls
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RateLimitConfig throttles inbound requests per client IP. Requires redis.
type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Limit   int           `yaml:"limit"`
	Window  time.Duration `yaml:"window"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Upstream.BaseURL == "" {
		return nil, errors.New("upstream.base_url is required")
	}
	if cfg.RateLimit.Enabled && cfg.Redis.URL == "" {
		return nil, errors.New("rate_limit.enabled requires redis.url")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Upstream.DefaultModel == "" {
		cfg.Upstream.DefaultModel = "gpt-4o-mini"
	}
	if cfg.Upstream.SystemPrompt == "" {
		cfg.Upstream.SystemPrompt = "You are a helpful assistant."
	}
	if cfg.Upstream.Temperature <= 0 {
		cfg.Upstream.Temperature = 0.7
	}
	if cfg.Upstream.MaxTokens <= 0 {
		cfg.Upstream.MaxTokens = 1024
	}
	if cfg.Upstream.Timeout <= 0 {
		cfg.Upstream.Timeout = 30 * time.Second
	}
	if cfg.Upstream.ConcurrentLimit <= 0 {
		cfg.Upstream.ConcurrentLimit = 16
	}
	if cfg.RateLimit.Limit <= 0 {
		cfg.RateLimit.Limit = 60
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
}
