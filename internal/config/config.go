package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
// Supports environment variables with sensible defaults.
//
// Environment Variables:
//
// HTTP:
// - HTTP_ADDR: listen address (default :8080)
// - UI_ENABLED: serve the static submit page (default true)
// - UI_STATIC_DIR: static asset directory (default ./web)
//
// Proxies:
// - PROXIES_LIST: comma-separated proxy endpoint URLs (default empty: direct)
//
// Upstream fetch:
// - FETCH_TIMEOUT: upstream request timeout in seconds (default 30)
// - FETCH_USER_AGENT: User-Agent for upstream requests (optional)
//
// Data:
// - DB_PATH: sqlite database path (default ./data/subgrab.db)
// - CACHE_TTL_MINUTES: transcript/track cache TTL (default 360)
// - CACHE_SWEEP_CRON: expired-cache sweep schedule (default every hour)
//
// Jobs:
// - JOB_WORKERS: prefetch worker count (default 2)
//
// Logging:
// - LOG_LEVEL: debug|info|warn|error (default info)
type Config struct {
	HTTP  HTTPConfig  `json:"http"`
	Proxy ProxyConfig `json:"proxy"`
	Fetch FetchConfig `json:"fetch"`
	Data  DataConfig  `json:"data"`
	Jobs  JobsConfig  `json:"jobs"`
	Log   LogConfig   `json:"log"`
}

type HTTPConfig struct {
	Addr        string `json:"addr"`
	UIEnabled   bool   `json:"ui_enabled"`
	UIStaticDir string `json:"ui_static_dir"`
}

type ProxyConfig struct {
	// Endpoints is the parsed PROXIES_LIST: trimmed entries, empties dropped.
	Endpoints []string `json:"endpoints"`
}

type FetchConfig struct {
	Timeout   int    `json:"timeout"`
	UserAgent string `json:"user_agent"`
}

type DataConfig struct {
	DBPath          string `json:"db_path"`
	CacheTTLMinutes int    `json:"cache_ttl_minutes"`
	CacheSweepCron  string `json:"cache_sweep_cron"`
}

type JobsConfig struct {
	Workers int `json:"workers"`
}

type LogConfig struct {
	Level string `json:"level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a Config from environment variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", ":8080"),
			UIEnabled:   getEnvBool("UI_ENABLED", true),
			UIStaticDir: getEnvString("UI_STATIC_DIR", "./web"),
		},
		Proxy: ProxyConfig{
			Endpoints: SplitProxyList(getEnvString("PROXIES_LIST", "")),
		},
		Fetch: FetchConfig{
			Timeout:   getEnvInt("FETCH_TIMEOUT", 30),
			UserAgent: getEnvString("FETCH_USER_AGENT", ""),
		},
		Data: DataConfig{
			DBPath:          getEnvString("DB_PATH", "./data/subgrab.db"),
			CacheTTLMinutes: getEnvInt("CACHE_TTL_MINUTES", 360),
			CacheSweepCron:  getEnvString("CACHE_SWEEP_CRON", "0 * * * *"),
		},
		Jobs: JobsConfig{
			Workers: getEnvInt("JOB_WORKERS", 2),
		},
		Log: LogConfig{
			Level: getEnvString("LOG_LEVEL", "info"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.Data.CacheTTLMinutes <= 0 {
		return fmt.Errorf("CACHE_TTL_MINUTES must be positive")
	}
	return nil
}

// SplitProxyList parses a comma-separated proxy list, trimming each entry
// and dropping empty ones.
func SplitProxyList(raw string) []string {
	parts := strings.Split(raw, ",")
	ret := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ret = append(ret, p)
	}
	return ret
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
