package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STARCRAWL_DB_DSN", "postgres://localhost:5432/stars")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 100000, cfg.Crawl.Target)
	require.Equal(t, 15, cfg.Crawl.MaxConcurrency)
	require.Equal(t, 4, cfg.Crawl.ChunkMultiplier)
	require.Equal(t, 20, cfg.Crawl.RateLowWater)
	require.Equal(t, time.Minute, cfg.Crawl.Cooldown())

	require.Equal(t, "https://api.github.com/graphql", cfg.GitHub.APIURL)
	require.Equal(t, 100, cfg.GitHub.PageSize)
	require.Equal(t, 5, cfg.GitHub.MaxRetries)
	require.Equal(t, 2*time.Second, cfg.GitHub.BackoffInitial())
	require.Equal(t, 32*time.Second, cfg.GitHub.BackoffMax())
	require.Equal(t, time.Minute, cfg.GitHub.RateLimitSleep())
	require.Equal(t, 30*time.Second, cfg.GitHub.Timeout())

	require.Len(t, cfg.Query.Languages, 20)
	require.Len(t, cfg.Query.StarRanges, 8)
	require.Len(t, cfg.Query.YearRanges, 10)

	require.Equal(t, "postgres", cfg.Storage.Provider)
	require.False(t, cfg.Server.Enabled)
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
crawl:
  target: 500
  max_concurrency: 3
  chunk_multiplier: 2
  rate_low_water: 5
  cooldown_seconds: 1
query:
  languages: ["go"]
  star_ranges: ["stars:>100"]
  year_ranges: []
github:
  token: test-token
  page_size: 50
storage:
  provider: memory
server:
  enabled: true
  port: 8081
logging:
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 500, cfg.Crawl.Target)
	require.Equal(t, 3, cfg.Crawl.MaxConcurrency)
	require.Equal(t, time.Second, cfg.Crawl.Cooldown())
	require.Equal(t, []string{"go"}, cfg.Query.Languages)
	require.Empty(t, cfg.Query.YearRanges)
	require.Equal(t, "test-token", cfg.GitHub.Token)
	require.Equal(t, 50, cfg.GitHub.PageSize)
	require.Equal(t, "memory", cfg.Storage.Provider)
	require.True(t, cfg.Server.Enabled)
	require.Equal(t, 8081, cfg.Server.Port)
	require.True(t, cfg.Logging.Development)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STARCRAWL_DB_DSN", "postgres://localhost:5432/stars")
	t.Setenv("STARCRAWL_CRAWL_TARGET", "250")
	t.Setenv("STARCRAWL_GITHUB_TOKEN", "env-token")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "postgres://localhost:5432/stars", cfg.DB.DSN)
	require.Equal(t, 250, cfg.Crawl.Target)
	require.Equal(t, "env-token", cfg.GitHub.Token)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	valid := func() Config {
		return Config{
			Crawl: CrawlConfig{
				Target:          1000,
				MaxConcurrency:  15,
				ChunkMultiplier: 4,
				RateLowWater:    20,
			},
			GitHub:  GitHubConfig{PageSize: 100, MaxRetries: 5},
			Storage: StorageConfig{Provider: "memory"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero target", func(c *Config) { c.Crawl.Target = 0 }},
		{"zero concurrency", func(c *Config) { c.Crawl.MaxConcurrency = 0 }},
		{"zero chunk multiplier", func(c *Config) { c.Crawl.ChunkMultiplier = 0 }},
		{"negative low water", func(c *Config) { c.Crawl.RateLowWater = -1 }},
		{"page size too large", func(c *Config) { c.GitHub.PageSize = 101 }},
		{"zero retries", func(c *Config) { c.GitHub.MaxRetries = 0 }},
		{"unknown provider", func(c *Config) { c.Storage.Provider = "redis" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Provider = "postgres" }},
		{"enabled server without port", func(c *Config) { c.Server.Enabled = true }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	require.NoError(t, valid().Validate())
}
