// Package validate provides caller-side checks for round inputs.
// The calculator itself accepts anything; these helpers are what a UI or API
// layer runs before handing values to it.
package validate

import (
	"fmt"
	"math"

	"cashflow_sim/pkg/core/round"
)

// =============================================================================
// LIMITS
// =============================================================================

// Limits are the slider ranges of the simulator.
type Limits struct {
	IssueMax  float64 `json:"issue_max"`  // issue amount in [0, IssueMax]
	MarginMin float64 `json:"margin_min"` // operating margin in [MarginMin, MarginMax], percent
	MarginMax float64 `json:"margin_max"`
	TaxMax    float64 `json:"tax_max"`   // tax/stakeholder share in [0, TaxMax], percent
	AllocMax  float64 `json:"alloc_max"` // each of B and F in [0, AllocMax], percent; B+F <= 100
}

// DefaultLimits mirrors the ranges of the interactive controls.
func DefaultLimits() Limits {
	return Limits{
		IssueMax:  500,
		MarginMin: -50,
		MarginMax: 50,
		TaxMax:    100,
		AllocMax:  100,
	}
}

// =============================================================================
// CLAMPING
// =============================================================================

// clamp pins v into [lo, hi]. Non-finite values go to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

// ClampParams pulls every field into range the way the sliders would and
// returns one note per field it had to change.
// When B+F exceeds 100 the payout share is reduced; capex keeps its value.
func ClampParams(p round.PolicyParams, lim Limits) (round.PolicyParams, []string) {
	var notes []string
	out := p

	adjust := func(name string, dst *float64, lo, hi float64) {
		v := clamp(*dst, lo, hi)
		if v != *dst {
			notes = append(notes, fmt.Sprintf("%s %v clamped to %v", name, *dst, v))
			*dst = v
		}
	}

	adjust("issue_amount", &out.IssueAmount, 0, lim.IssueMax)
	adjust("op_margin", &out.OpMargin, lim.MarginMin, lim.MarginMax)
	adjust("tax_stake_pct", &out.TaxStakePct, 0, lim.TaxMax)
	adjust("b_capex_pct", &out.Allocation.BCapexPct, 0, lim.AllocMax)
	adjust("f_payout_pct", &out.Allocation.FPayoutPct, 0, lim.AllocMax)

	if sum := out.Allocation.BCapexPct + out.Allocation.FPayoutPct; sum > 100 {
		f := 100 - out.Allocation.BCapexPct
		notes = append(notes, fmt.Sprintf("f_payout_pct %v reduced to %v so allocation sums to 100", out.Allocation.FPayoutPct, f))
		out.Allocation.FPayoutPct = f
	}

	return out, notes
}

// Strict reports the first out-of-range field without changing anything.
func Strict(p round.PolicyParams, lim Limits) error {
	_, notes := ClampParams(p, lim)
	if len(notes) > 0 {
		return fmt.Errorf("invalid policy: %s", notes[0])
	}
	return nil
}

// CheckBalances rejects starting balances the calculator is not meant for.
func CheckBalances(b round.BalanceState) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"firm_cash", b.FirmCash},
		{"market_cash", b.MarketCash},
		{"stakeholder_cash", b.StakeholderCash},
		{"assets_book", b.AssetsBook},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s is not a finite number", f.name)
		}
		if f.v < 0 {
			return fmt.Errorf("%s must not be negative (got %v)", f.name, f.v)
		}
	}
	return nil
}
