package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no .env here
	for _, k := range []string{"PORT", "LOG_LEVEL", "DATABASE_URL", "SIM_CONFIG", "SESSION_DIR", "SESSION_TTL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST"} {
		t.Setenv(k, "")
	}

	cfg, envLoaded := Load()
	assert.False(t, envLoaded)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "config/simulator.yaml", cfg.SimConfigPath)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 30, cfg.RateLimitBurst)
}

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	for _, k := range []string{"PORT", "SESSION_TTL", "RATE_LIMIT_RPS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("PORT=9090\nSESSION_TTL=5m\nRATE_LIMIT_RPS=2.5\n"), 0644))

	cfg, envLoaded := Load()
	assert.True(t, envLoaded)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestParseSimulator(t *testing.T) {
	data := []byte(`
initial_balances:
  firm_cash: 10
  market_cash: 30
  assets_book: 0
default_policy:
  issue_amount: 100
  op_margin: -5
  tax_stake_pct: 20
  b_capex_pct: 60
  f_payout_pct: 40
limits:
  issue_max: 1000
  margin_min: -20
strict: true
`)
	sim, err := ParseSimulator(data)
	require.NoError(t, err)

	assert.Equal(t, 10.0, sim.Initial.FirmCash)
	assert.Equal(t, 30.0, sim.Initial.MarketCash)
	assert.Equal(t, 100.0, sim.Policy.IssueAmount)
	assert.Equal(t, -5.0, sim.Policy.OpMargin)
	assert.Equal(t, 60.0, sim.Policy.Allocation.BCapexPct)
	assert.Equal(t, 40.0, sim.Policy.Allocation.FPayoutPct)
	assert.Equal(t, 1000.0, sim.Limits.IssueMax)
	assert.Equal(t, -20.0, sim.Limits.MarginMin)
	assert.Equal(t, 50.0, sim.Limits.MarginMax) // default kept
	assert.True(t, sim.Strict)
}

func TestParseSimulator_Errors(t *testing.T) {
	_, err := ParseSimulator([]byte("initial_balances: [1, 2"))
	assert.Error(t, err)

	_, err = ParseSimulator([]byte("limits:\n  margin_min: 10\n  margin_max: 5\n"))
	assert.Error(t, err)
}

func TestLoadSimulator_MissingFile(t *testing.T) {
	sim, err := LoadSimulator(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSimulator(), sim)
}

func TestLoadSimulator_RepoConfig(t *testing.T) {
	sim, err := LoadSimulator(filepath.Join("..", "..", "..", "config", "simulator.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSimulator().Initial, sim.Initial)
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
