package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/dealsentry/dealsentry/internal/paapi"
	"github.com/dealsentry/dealsentry/internal/pipeline"
	"github.com/dealsentry/dealsentry/internal/selection"
	"github.com/dealsentry/dealsentry/internal/watch"
)

// Config is the full process configuration, loaded once at startup.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`

	Pipeline  pipeline.Config           `yaml:"pipeline"`
	Scoring   ScoringConfig             `yaml:"scoring"`
	MultiCard selection.MultiCardConfig `yaml:"multicard"`
	Watch     WatchConfig               `yaml:"watch"`
	Features  FeaturesConfig            `yaml:"features"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace..panic
	Pretty bool   `yaml:"pretty"` // console writer instead of JSON
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// UpstreamConfig holds product API credentials and adapter tuning.
type UpstreamConfig struct {
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	PartnerTag  string `yaml:"partner_tag"`
	Marketplace string `yaml:"marketplace"`
	Region      string `yaml:"region"`
	Host        string `yaml:"host"`

	Adapter paapi.AdapterConfig `yaml:"adapter"`
}

// Credentials materializes the upstream signing credentials.
func (u UpstreamConfig) Credentials() paapi.Credentials {
	return paapi.Credentials{
		AccessKey:   u.AccessKey,
		SecretKey:   u.SecretKey,
		PartnerTag:  u.PartnerTag,
		Marketplace: u.Marketplace,
		Region:      u.Region,
		Host:        u.Host,
	}
}

type RedisConfig struct {
	Addr     string `yaml:"addr"` // empty disables the search cache
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PostgresConfig struct {
	DSN          string        `yaml:"dsn"` // empty disables persistence
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

type ScoringConfig struct {
	EnableExcellence bool          `yaml:"enable_excellence"`
	AnalysisTTL      time.Duration `yaml:"analysis_ttl"`
}

// WatchConfig combines evaluator thresholds with runner scheduling.
type WatchConfig struct {
	watch.Config `yaml:",inline"`
	Schedule     string        `yaml:"schedule"`
	PerWatch     time.Duration `yaml:"per_watch"`
}

type FeaturesConfig struct {
	// ExtraDenylist terms are merged into the built-in marketing
	// deny-list before extraction.
	ExtraDenylist []string `yaml:"extra_denylist"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Server: ServerConfig{Addr: ":8090"},
		Upstream: UpstreamConfig{
			Marketplace: "www.amazon.in",
			Region:      "eu-west-1",
			Host:        "webservices.amazon.in",
		},
		Postgres: PostgresConfig{QueryTimeout: 3 * time.Second},
		Scoring:  ScoringConfig{EnableExcellence: true, AnalysisTTL: 30 * time.Minute},
		MultiCard: selection.DefaultMultiCardConfig(),
		Watch: WatchConfig{
			Schedule: "@every 15m",
			PerWatch: 30 * time.Second,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that would misbehave at runtime
// rather than fail fast.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "", "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("log.level %q is not a known level", c.Log.Level)
	}
	if c.Upstream.Adapter.RatePerSec > 1 {
		return fmt.Errorf("upstream.adapter.rate_per_sec %.2f exceeds the documented 1 rps quota", c.Upstream.Adapter.RatePerSec)
	}
	if c.Pipeline.MaxPages > 10 {
		return fmt.Errorf("pipeline.max_pages %d exceeds the upstream page depth limit of 10", c.Pipeline.MaxPages)
	}
	if c.Pipeline.BasePages > c.Pipeline.MaxPages && c.Pipeline.MaxPages > 0 {
		return fmt.Errorf("pipeline.base_pages %d exceeds max_pages %d", c.Pipeline.BasePages, c.Pipeline.MaxPages)
	}
	if c.Watch.PriceDropRatio < 0 || c.Watch.PriceDropRatio >= 1 {
		if c.Watch.PriceDropRatio != 0 {
			return fmt.Errorf("watch.price_drop_ratio %.2f must be in (0,1)", c.Watch.PriceDropRatio)
		}
	}
	if c.MultiCard.TopGap < 0 || c.MultiCard.TopGap > 1 {
		return fmt.Errorf("multicard.top_gap %.2f must be in [0,1]", c.MultiCard.TopGap)
	}
	return nil
}
