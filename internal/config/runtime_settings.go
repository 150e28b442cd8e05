package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
)

const DefaultRuntimeSettingsFile = "./data/settings.json"

// RuntimeSettings is the subset of configuration that can be changed through
// the API without restarting the process.
type RuntimeSettings struct {
	Proxies         string `json:"proxies"`
	CacheTTLMinutes int    `json:"cache_ttl_minutes"`
	CacheSweepCron  string `json:"cache_sweep_cron"`
}

func RuntimeSettingsFilePath() string {
	return getEnvString("SETTINGS_FILE", DefaultRuntimeSettingsFile)
}

func (s RuntimeSettings) Validate() error {
	for _, endpoint := range SplitProxyList(s.Proxies) {
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid proxy endpoint: %q", endpoint)
		}
	}
	if s.CacheTTLMinutes <= 0 {
		return fmt.Errorf("cache_ttl_minutes must be positive")
	}
	if strings.TrimSpace(s.CacheSweepCron) == "" {
		return fmt.Errorf("cache_sweep_cron is required")
	}
	if _, err := cron.ParseStandard(s.CacheSweepCron); err != nil {
		return fmt.Errorf("invalid cache_sweep_cron: %w", err)
	}
	return nil
}

// ProxyEndpoints returns the parsed proxy list.
func (s RuntimeSettings) ProxyEndpoints() []string {
	return SplitProxyList(s.Proxies)
}

func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		Proxies:         strings.Join(c.Proxy.Endpoints, ","),
		CacheTTLMinutes: c.Data.CacheTTLMinutes,
		CacheSweepCron:  c.Data.CacheSweepCron,
	}
}

func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		if strings.TrimSpace(settings.Proxies) != "" {
			c.Proxy.Endpoints = SplitProxyList(settings.Proxies)
		}
		if settings.CacheTTLMinutes > 0 {
			c.Data.CacheTTLMinutes = settings.CacheTTLMinutes
		}
		if strings.TrimSpace(settings.CacheSweepCron) != "" {
			c.Data.CacheSweepCron = settings.CacheSweepCron
		}
	}
}

func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeSettings{}, err
	}
	var settings RuntimeSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return RuntimeSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

type RuntimeSettingsStore struct {
	path string

	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(path string, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{
		path:    path,
		current: initial,
	}, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if err := WriteRuntimeSettingsFile(s.path, next); err != nil {
		return RuntimeSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
