package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Directory DirectoryConfig `yaml:"directory" mapstructure:"directory"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Overpass  OverpassConfig  `yaml:"overpass" mapstructure:"overpass"`
	Import    ImportConfig    `yaml:"import" mapstructure:"import"`
	Jobs      JobsConfig      `yaml:"jobs" mapstructure:"jobs"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the venue/visit database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CacheConfig configures the tiered verification cache.
type CacheConfig struct {
	Path             string `yaml:"path" mapstructure:"path"`
	MemoryMaxEntries int    `yaml:"memory_max_entries" mapstructure:"memory_max_entries"`
	MemoryTTLMinutes int    `yaml:"memory_ttl_minutes" mapstructure:"memory_ttl_minutes"`
}

// DirectoryConfig configures the brewery directory API (tier 2).
type DirectoryConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerHr  int    `yaml:"requests_per_hour" mapstructure:"requests_per_hour"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PerPageResults int    `yaml:"per_page_results" mapstructure:"per_page_results"`
}

// SearchConfig configures the web-search surface (tier 3).
type SearchConfig struct {
	BaseURL       string   `yaml:"base_url" mapstructure:"base_url"`
	MinIntervalMS int      `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgents    []string `yaml:"user_agents" mapstructure:"user_agents"`
}

// OverpassConfig configures the open geographic database API.
type OverpassConfig struct {
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	IntervalSecs    int     `yaml:"interval_secs" mapstructure:"interval_secs"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DefaultRadiusKM float64 `yaml:"default_radius_km" mapstructure:"default_radius_km"`
}

// ImportConfig configures import pipeline behavior.
type ImportConfig struct {
	AsyncThreshold  int   `yaml:"async_threshold" mapstructure:"async_threshold"`
	MaxPayloadBytes int64 `yaml:"max_payload_bytes" mapstructure:"max_payload_bytes"`
}

// JobsConfig configures the async job processor.
type JobsConfig struct {
	Concurrency        int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxAttempts        int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffSecs int `yaml:"initial_backoff_secs" mapstructure:"initial_backoff_secs"`
	PollIntervalSecs   int `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MemoryTTL returns the in-memory cache tier TTL.
func (c CacheConfig) MemoryTTL() time.Duration {
	return time.Duration(c.MemoryTTLMinutes) * time.Minute
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BREWTRAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("cache.path", "cache.db")
	v.SetDefault("cache.memory_max_entries", 4096)
	v.SetDefault("cache.memory_ttl_minutes", 30)
	v.SetDefault("directory.base_url", "https://api.openbrewerydb.org/v1")
	v.SetDefault("directory.requests_per_hour", 100)
	v.SetDefault("directory.timeout_secs", 10)
	v.SetDefault("directory.per_page_results", 10)
	v.SetDefault("search.base_url", "https://html.duckduckgo.com/html")
	v.SetDefault("search.min_interval_ms", 500)
	v.SetDefault("search.timeout_secs", 10)
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.interval_secs", 2)
	v.SetDefault("overpass.timeout_secs", 25)
	v.SetDefault("overpass.default_radius_km", 10)
	v.SetDefault("import.async_threshold", 100)
	v.SetDefault("import.max_payload_bytes", 50*1024*1024)
	v.SetDefault("jobs.concurrency", 5)
	v.SetDefault("jobs.max_attempts", 3)
	v.SetDefault("jobs.initial_backoff_secs", 2)
	v.SetDefault("jobs.poll_interval_secs", 1)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
