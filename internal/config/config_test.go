package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "etherlens-config-*.yaml")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(body)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
general:
  instance_id: "test-node"
  environment: "development"
  log_level: "debug"

server:
  listen_addr: ":9099"

chain:
  endpoint: "http://localhost:18545"
  timeout_ms: 5000
  rate_limit_rps: 25

explorer:
  base_url: "https://api.etherscan.io/api"
  api_key: "test-key"

scoring:
  safe_below: 0.25
  high_at: 0.75
  weights:
    unverified: 0.40

cache:
  ttl_sec: 120
  capacity: 64

pipeline:
  analyze_timeout_ms: 12000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-node", cfg.General.InstanceID)
	assert.Equal(t, ":9099", cfg.Server.ListenAddr)
	assert.Equal(t, "http://localhost:18545", cfg.Chain.Endpoint)
	assert.Equal(t, 25.0, cfg.Chain.RateLimitRPS)
	assert.Equal(t, "test-key", cfg.Explorer.APIKey)

	assert.Equal(t, 5*time.Second, cfg.ChainClientConfig().Timeout)
	assert.Equal(t, 2*time.Minute, cfg.ResultCacheConfig().TTL)
	assert.Equal(t, 12*time.Second, cfg.PipelineOrchestratorConfig().AnalyzeTimeout)

	sc := cfg.ScoringEngineConfig()
	assert.Equal(t, 0.25, sc.SafeBelow)
	assert.Equal(t, 0.75, sc.HighAt)
	assert.Equal(t, 0.40, sc.Weights.Unverified)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "general: {}\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "etherlens-1", cfg.General.InstanceID)
	assert.Equal(t, "development", cfg.General.Environment)
	assert.Equal(t, "info", cfg.General.LogLevel)
	assert.Equal(t, "json", cfg.General.LogFormat)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
}

func TestLoadConfig_ExpandsEnvironment(t *testing.T) {
	t.Setenv("ETHERLENS_TEST_KEY", "secret-from-env")
	path := writeConfig(t, `
explorer:
  api_key: "${ETHERLENS_TEST_KEY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-from-env", cfg.Explorer.APIKey)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/etherlens.yaml")
	require.Error(t, err)
}
