package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.HTTP.UIEnabled)
	assert.Equal(t, "./web", cfg.HTTP.UIStaticDir)
	assert.Empty(t, cfg.Proxy.Endpoints)
	assert.Equal(t, 30, cfg.Fetch.Timeout)
	assert.Equal(t, "./data/subgrab.db", cfg.Data.DBPath)
	assert.Equal(t, 360, cfg.Data.CacheTTLMinutes)
	assert.Equal(t, "0 * * * *", cfg.Data.CacheSweepCron)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNewFromEnv_ProxiesList(t *testing.T) {
	t.Setenv("PROXIES_LIST", "http://a:8080, ,http://b:8080,")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a:8080", "http://b:8080"}, cfg.Proxy.Endpoints)
}

func TestNewFromEnv_InvalidTimeout(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "-5")

	_, err := NewFromEnv()
	require.Error(t, err)
}

func TestSplitProxyList(t *testing.T) {
	assert.Equal(t,
		[]string{"http://a:8080", "http://b:8080"},
		SplitProxyList(" http://a:8080 , ,http://b:8080,"),
	)
	assert.Empty(t, SplitProxyList(""))
	assert.Empty(t, SplitProxyList(" , ,"))
}
