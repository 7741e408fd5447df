// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Query   QueryConfig   `mapstructure:"query"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlConfig governs orchestrator scheduling and rate-limit behavior.
type CrawlConfig struct {
	Target          int `mapstructure:"target"`
	MaxConcurrency  int `mapstructure:"max_concurrency"`
	ChunkMultiplier int `mapstructure:"chunk_multiplier"`
	RateLowWater    int `mapstructure:"rate_low_water"`
	CooldownSeconds int `mapstructure:"cooldown_seconds"`
}

// QueryConfig holds the partitioning dimensions. The dimensions are fixed for
// a run; density is tuned here, never adjusted from observed result counts.
type QueryConfig struct {
	Languages  []string `mapstructure:"languages"`
	StarRanges []string `mapstructure:"star_ranges"`
	YearRanges []string `mapstructure:"year_ranges"`
}

// GitHubConfig configures the GraphQL search client and its retry behavior.
type GitHubConfig struct {
	Token                 string `mapstructure:"token"`
	APIURL                string `mapstructure:"api_url"`
	PageSize              int    `mapstructure:"page_size"`
	MaxRetries            int    `mapstructure:"max_retries"`
	BackoffInitialMs      int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs          int    `mapstructure:"backoff_max_ms"`
	RateLimitSleepSeconds int    `mapstructure:"rate_limit_sleep_seconds"`
	TimeoutSeconds        int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// StorageConfig selects the repo store backend.
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
}

// ServerConfig controls the ops HTTP endpoint served during a crawl.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STARCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.target", 100000)
	v.SetDefault("crawl.max_concurrency", 15)
	v.SetDefault("crawl.chunk_multiplier", 4)
	v.SetDefault("crawl.rate_low_water", 20)
	v.SetDefault("crawl.cooldown_seconds", 60)
	v.SetDefault("query.languages", defaultLanguages)
	v.SetDefault("query.star_ranges", defaultStarRanges)
	v.SetDefault("query.year_ranges", defaultYearRanges)
	// Secrets default empty so the env bindings are visible to Unmarshal.
	v.SetDefault("github.token", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("github.api_url", "https://api.github.com/graphql")
	v.SetDefault("github.page_size", 100)
	v.SetDefault("github.max_retries", 5)
	v.SetDefault("github.backoff_initial_ms", 2000)
	v.SetDefault("github.backoff_max_ms", 32000)
	v.SetDefault("github.rate_limit_sleep_seconds", 60)
	v.SetDefault("github.timeout_seconds", 30)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("storage.provider", "postgres")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 9090)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawl.Target <= 0 {
		return fmt.Errorf("crawl.target must be > 0")
	}
	if c.Crawl.MaxConcurrency <= 0 {
		return fmt.Errorf("crawl.max_concurrency must be > 0")
	}
	if c.Crawl.ChunkMultiplier <= 0 {
		return fmt.Errorf("crawl.chunk_multiplier must be > 0")
	}
	if c.Crawl.RateLowWater < 0 {
		return fmt.Errorf("crawl.rate_low_water must be >= 0")
	}
	if c.GitHub.PageSize <= 0 || c.GitHub.PageSize > 100 {
		return fmt.Errorf("github.page_size must be in 1..100")
	}
	if c.GitHub.MaxRetries <= 0 {
		return fmt.Errorf("github.max_retries must be > 0")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when server is enabled")
	}
	switch c.Storage.Provider {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	if c.Storage.Provider == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required when storage provider is postgres")
	}
	return nil
}

// Cooldown returns the rate-limit pause as a duration.
func (c CrawlConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Timeout returns the per-request HTTP timeout as a duration.
func (c GitHubConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackoffInitial returns the first retry delay as a duration.
func (c GitHubConfig) BackoffInitial() time.Duration {
	return time.Duration(c.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the retry delay ceiling as a duration.
func (c GitHubConfig) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMs) * time.Millisecond
}

// RateLimitSleep returns the explicit rate-limit retry pause as a duration.
func (c GitHubConfig) RateLimitSleep() time.Duration {
	return time.Duration(c.RateLimitSleepSeconds) * time.Second
}
