package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/elsewhere/internal/source"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Sources    SourcesConfig    `yaml:"sources"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Embed      EmbedConfig      `yaml:"embed"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings. The database only holds the
// enrichment cache.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxFiles   int    `yaml:"max_files"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// SourcesConfig tunes the platform adapters.
type SourcesConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	QueueBudget   time.Duration `yaml:"queue_budget"`
	Disabled      []string      `yaml:"disabled"`
	MaxAlbumPages int           `yaml:"max_album_pages"`
	UserAgent     string        `yaml:"user_agent"`
}

// EnrichmentConfig tunes the metadata lookup and its cache.
type EnrichmentConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Timeout          time.Duration `yaml:"timeout"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	NegativeCacheTTL time.Duration `yaml:"negative_cache_ttl"`
	MusicBrainzURL   string        `yaml:"musicbrainz_url"`
}

// EmbedConfig tunes the embed resolver.
type EmbedConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// RateLimitConfig bounds API requests per client IP.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			BasePath: "/",
		},
		Database: DatabaseConfig{
			Path: "/data/elsewhere.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxFiles:   3,
			MaxAgeDays: 30,
		},
		Sources: SourcesConfig{
			Timeout:       10 * time.Second,
			QueueBudget:   30 * time.Second,
			MaxAlbumPages: 5,
		},
		Enrichment: EnrichmentConfig{
			Enabled:          true,
			Timeout:          15 * time.Second,
			CacheTTL:         7 * 24 * time.Hour,
			NegativeCacheTTL: 24 * time.Hour,
		},
		Embed: EmbedConfig{
			Timeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DisabledSources returns the disabled list as source ids.
func (c *Config) DisabledSources() []source.ID {
	out := make([]source.ID, 0, len(c.Sources.Disabled))
	for _, s := range c.Sources.Disabled {
		out = append(out, source.ID(strings.ToLower(strings.TrimSpace(s))))
	}
	return out
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("EW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("EW_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("EW_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("EW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EW_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("EW_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("EW_SOURCE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Sources.Timeout = d
		}
	}
	if v := os.Getenv("EW_ENRICHMENT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Enrichment.Enabled = b
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Sources.Timeout <= 0 {
		return fmt.Errorf("invalid source timeout: %s", c.Sources.Timeout)
	}
	if c.Sources.QueueBudget < 0 {
		return fmt.Errorf("invalid source queue_budget: %s", c.Sources.QueueBudget)
	}
	if c.Sources.MaxAlbumPages < 1 {
		return fmt.Errorf("invalid max_album_pages: %d", c.Sources.MaxAlbumPages)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	reg := source.Default()
	for _, id := range c.DisabledSources() {
		if !reg.Has(id) {
			return fmt.Errorf("unknown disabled source: %q", id)
		}
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("invalid requests_per_minute: %d", c.RateLimit.RequestsPerMinute)
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}
