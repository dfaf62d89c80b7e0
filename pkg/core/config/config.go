// Package config loads process settings from the environment and the
// simulator defaults from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"cashflow_sim/pkg/core/round"
	"cashflow_sim/pkg/core/validate"
)

// AppConfig holds the environment-driven settings of the binaries.
type AppConfig struct {
	Port           string
	LogLevel       string
	DatabaseURL    string // empty: sessions go to SessionDir
	SimConfigPath  string
	SessionDir     string
	SessionTTL     time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env (if any) and the environment. The bool reports whether a
// .env file was found.
func Load() (*AppConfig, bool) {
	envLoaded := godotenv.Load() == nil

	cfg := &AppConfig{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SimConfigPath: getEnv("SIM_CONFIG", "config/simulator.yaml"),
		SessionDir:    getEnv("SESSION_DIR", ".cache/sessions"),
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "30m"))
	if err != nil || ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cfg.SessionTTL = ttl

	cfg.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", 10)
	cfg.RateLimitBurst = int(getEnvFloat("RATE_LIMIT_BURST", 30))

	return cfg, envLoaded
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

// =============================================================================
// SIMULATOR DEFAULTS (config/simulator.yaml)
// =============================================================================

type policyYAML struct {
	IssueAmount float64 `yaml:"issue_amount"`
	OpMargin    float64 `yaml:"op_margin"`
	TaxStakePct float64 `yaml:"tax_stake_pct"`
	BCapexPct   float64 `yaml:"b_capex_pct"`
	FPayoutPct  float64 `yaml:"f_payout_pct"`
}

type limitsYAML struct {
	IssueMax  *float64 `yaml:"issue_max"`
	MarginMin *float64 `yaml:"margin_min"`
	MarginMax *float64 `yaml:"margin_max"`
	TaxMax    *float64 `yaml:"tax_max"`
	AllocMax  *float64 `yaml:"alloc_max"`
}

type simulatorYAML struct {
	Initial round.BalanceState `yaml:"initial_balances"`
	Policy  policyYAML         `yaml:"default_policy"`
	Limits  limitsYAML         `yaml:"limits"`
	Strict  bool               `yaml:"strict"`
}

// Simulator is the starting point and control ranges offered to callers.
type Simulator struct {
	Initial round.BalanceState
	Policy  round.PolicyParams
	Limits  validate.Limits
	Strict  bool // reject out-of-range params instead of clamping
}

// DefaultSimulator is used when no config file is present.
func DefaultSimulator() Simulator {
	return Simulator{
		Initial: round.BalanceState{FirmCash: 50, MarketCash: 500, AssetsBook: 150},
		Policy: round.PolicyParams{
			IssueAmount: 80,
			OpMargin:    15,
			TaxStakePct: 25,
			Allocation:  round.Allocation{BCapexPct: 40, FPayoutPct: 40},
		},
		Limits: validate.DefaultLimits(),
	}
}

// LoadSimulator reads the YAML file at path. A missing file yields the
// defaults; a malformed one is an error.
func LoadSimulator(path string) (Simulator, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSimulator(), nil
	}
	if err != nil {
		return Simulator{}, fmt.Errorf("failed to read simulator config: %w", err)
	}
	return ParseSimulator(data)
}

// ParseSimulator decodes simulator YAML. Unset limits keep their defaults.
func ParseSimulator(data []byte) (Simulator, error) {
	var raw simulatorYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Simulator{}, fmt.Errorf("failed to parse simulator config: %w", err)
	}

	lim := validate.DefaultLimits()
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&lim.IssueMax, raw.Limits.IssueMax)
	set(&lim.MarginMin, raw.Limits.MarginMin)
	set(&lim.MarginMax, raw.Limits.MarginMax)
	set(&lim.TaxMax, raw.Limits.TaxMax)
	set(&lim.AllocMax, raw.Limits.AllocMax)

	if lim.MarginMin > lim.MarginMax {
		return Simulator{}, fmt.Errorf("limits: margin_min %v exceeds margin_max %v", lim.MarginMin, lim.MarginMax)
	}

	return Simulator{
		Initial: raw.Initial,
		Policy: round.PolicyParams{
			IssueAmount: raw.Policy.IssueAmount,
			OpMargin:    raw.Policy.OpMargin,
			TaxStakePct: raw.Policy.TaxStakePct,
			Allocation: round.Allocation{
				BCapexPct:  raw.Policy.BCapexPct,
				FPayoutPct: raw.Policy.FPayoutPct,
			},
		},
		Limits: lim,
		Strict: raw.Strict,
	}, nil
}
