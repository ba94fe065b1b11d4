package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/prophet/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeYAML(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://gamma-api.polymarket.com", cfg.API.GammaBase)
	assert.Equal(t, []string{"direct", "corsproxy", "allorigins"}, cfg.API.Transports)
	assert.Equal(t, time.Second, cfg.RetryBase())
	assert.Equal(t, uint8(6), cfg.Ledger.Decimals)
	assert.Equal(t, 1000.0, cfg.Gating.Threshold)
	assert.Equal(t, 500.0, cfg.Gating.ResolutionStake)
	assert.Equal(t, 100, cfg.Daily.PageSize)
	assert.Equal(t, 5, cfg.Daily.MaxPages)
	assert.Equal(t, 100.0, cfg.Daily.MinVolume)
	assert.Equal(t, 24*time.Hour, cfg.DailyWindow())
	assert.Equal(t, 5*time.Second, cfg.FocusedInterval())
	assert.Equal(t, 15*time.Second, cfg.ListInterval())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_YAMLValues(t *testing.T) {
	path := writeYAML(t, `
api:
  transports: [direct]
  retry_base_ms: 5
ledger:
  rpc_url: http://localhost:8899
  decimals: 9
gating:
  threshold: 250
daily:
  count: 3
relayer:
  interval_seconds: 60
  workers: 2
telegram:
  bot_token: "123:abc"
  chat_ids: ["42"]
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"direct"}, cfg.API.Transports)
	assert.Equal(t, 5*time.Millisecond, cfg.RetryBase())
	assert.Equal(t, "http://localhost:8899", cfg.Ledger.RPCURL)
	assert.Equal(t, uint8(9), cfg.Ledger.Decimals)
	assert.Equal(t, 250.0, cfg.Gating.Threshold)
	assert.Equal(t, 3, cfg.Daily.Count)
	assert.Equal(t, time.Minute, cfg.RelayInterval())
	assert.Equal(t, 2, cfg.Relayer.Workers)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "http://rpc.test")
	t.Setenv("PROPHET_DB", ":memory:")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TELEGRAM_CHAT_IDS", "1,2")

	cfg, err := config.Load(writeYAML(t, "ledger:\n  rpc_url: http://ignored\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://rpc.test", cfg.Ledger.RPCURL)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"1", "2"}, cfg.Telegram.ChatIDs)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Daily.Count)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Load(writeYAML(t, "api: [not, a, map"))
	assert.Error(t, err)
}
