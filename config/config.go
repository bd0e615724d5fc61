package config

import (
	"log"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// GraphQLConfig controls how the upstream GraphQL endpoint is reached.
type GraphQLConfig struct {
	Endpoint          string  `yaml:"endpoint"`            // default: https://leetcode.com/graphql
	TimeoutSeconds    int     `yaml:"timeout_seconds"`     // per-request timeout (default: 10)
	RequestsPerSecond float64 `yaml:"requests_per_second"` // client-side rate limit (default: 4)
}

// FeedConfig controls how much submission history is pulled per user.
type FeedConfig struct {
	RecentLimit int `yaml:"recent_limit"` // activity feed submissions per user (default: 5)
	DailyLimit  int `yaml:"daily_limit"`  // submissions scanned for the daily board (default: 20)
}

// Config represents the application configuration
type Config struct {
	Port     string        `yaml:"port"`
	Database string        `yaml:"database"`
	GraphQL  GraphQLConfig `yaml:"graphql"`
	Feed     FeedConfig    `yaml:"feed"`

	// SnapshotTTL is how long a computed leaderboard snapshot stays fresh, in seconds.
	SnapshotTTL int `yaml:"snapshot_ttl_seconds"`
}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Port:     "8080",
		Database: "./leetfriends.db",
		GraphQL: GraphQLConfig{
			Endpoint:          "https://leetcode.com/graphql",
			TimeoutSeconds:    10,
			RequestsPerSecond: 4,
		},
		Feed: FeedConfig{
			RecentLimit: 5,
			DailyLimit:  20,
		},
		SnapshotTTL: 300,
	}
}

// Load reads and parses the configuration file, falling back to defaults
// when the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[CONFIG] No config file at %s, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	log.Printf("[CONFIG] Loaded configuration from %s", path)
	log.Printf("[CONFIG] - Port: %s", cfg.Port)
	log.Printf("[CONFIG] - Database: %s", cfg.Database)
	log.Printf("[CONFIG] - GraphQL endpoint: %s", cfg.GraphQL.Endpoint)
	log.Printf("[CONFIG] - Recent limit: %d", cfg.Feed.RecentLimit)

	return cfg, nil
}

// RequestTimeout returns the per-request GraphQL timeout as a time.Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.GraphQL.TimeoutSeconds) * time.Second
}

// SnapshotMaxAge returns how long a leaderboard snapshot may be served
// before it must be rebuilt.
func (c *Config) SnapshotMaxAge() time.Duration {
	return time.Duration(c.SnapshotTTL) * time.Second
}
