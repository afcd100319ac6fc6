package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StrengthSentinel/internal/collector"
	"StrengthSentinel/internal/config"
	"StrengthSentinel/internal/model"
	"StrengthSentinel/internal/recorder"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ALPACA_API_KEY", "")
	t.Setenv("ALPACA_SECRET_KEY", "")
	t.Setenv("CACHE_PATH", "")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestBuildFetcher_Routes(t *testing.T) {
	cfg := testConfig(t)

	f, cache, err := buildFetcher(cfg, false)
	require.NoError(t, err)
	assert.Nil(t, cache)
	router, ok := f.(*collector.Router)
	require.True(t, ok)
	assert.Equal(t, "eastmoney>yahoo", router.Routes[model.SegmentDomestic].Name())
	assert.Equal(t, "yahoo", router.Routes[model.SegmentHongKong].Name())
	assert.Equal(t, "yahoo", router.Routes[model.SegmentUS].Name())

	cfg.DataSource.AlpacaAPIKey = "key"
	cfg.DataSource.AlpacaSecretKey = "secret"
	f, _, err = buildFetcher(cfg, false)
	require.NoError(t, err)
	assert.Equal(t, "alpaca>yahoo", f.(*collector.Router).Routes[model.SegmentUS].Name())
}

func TestBuildFetcher_Cached(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = true
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache")

	f, cache, err := buildFetcher(cfg, false)
	require.NoError(t, err)
	require.NotNil(t, cache)
	defer cache.Close()
	assert.Equal(t, "cached:router", f.Name())
}

func TestBuildFetcher_Mock(t *testing.T) {
	f, cache, err := buildFetcher(testConfig(t), true)
	require.NoError(t, err)
	assert.Nil(t, cache)
	assert.Equal(t, "mock", f.Name())
}

func TestOpenRecorder(t *testing.T) {
	_, ok := openRecorder("", false).(*recorder.NoopRecorder)
	assert.True(t, ok)

	rec := openRecorder(filepath.Join(t.TempDir(), "history.db"), false)
	defer rec.Close()
	_, ok = rec.(*recorder.SQLiteRecorder)
	assert.True(t, ok)
}
