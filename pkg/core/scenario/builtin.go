package scenario

import "cashflow_sim/pkg/core/round"

// Builtin returns the reference scenarios the self-test runs by default.
func Builtin() []Scenario {
	return []Scenario{
		{
			Name:        "full-sequence",
			Description: "Issue, positive FCF, tax and a 40/40 split",
			Balances:    round.BalanceState{FirmCash: 50, MarketCash: 500, AssetsBook: 150},
			Params: round.PolicyParams{
				IssueAmount: 80,
				OpMargin:    15,
				TaxStakePct: 25,
				Allocation:  round.Allocation{BCapexPct: 40, FPayoutPct: 40},
			},
			Expect: &Expectation{
				Amounts: map[string]float64{"A": 80, "C": 22.5, "D": 6, "B": 59, "F": 59},
				End:     &round.BalanceState{FirmCash: 28.5, MarketCash: 479, StakeholderCash: 6, AssetsBook: 209},
			},
		},
		{
			Name:        "issue-capped",
			Description: "Issue request above available market cash",
			Balances:    round.BalanceState{FirmCash: 10, MarketCash: 30},
			Params:      round.PolicyParams{IssueAmount: 100},
			Expect: &Expectation{
				Amounts: map[string]float64{"A": 30},
				Absent:  []string{"C", "D", "B", "F"},
				End:     &round.BalanceState{FirmCash: 40},
			},
		},
		{
			Name:        "loss-no-tax",
			Description: "Negative margin yields no tax step",
			Balances:    round.BalanceState{FirmCash: 50, AssetsBook: 100},
			Params:      round.PolicyParams{OpMargin: -10, TaxStakePct: 25},
			Expect: &Expectation{
				Absent: []string{"C", "D"},
				End:    &round.BalanceState{FirmCash: 40, AssetsBook: 100},
			},
		},
		{
			Name:        "distributable-clamped",
			Description: "Deep loss leaves nothing to allocate",
			Balances:    round.BalanceState{FirmCash: 10, AssetsBook: 100},
			Params: round.PolicyParams{
				OpMargin:   -50,
				Allocation: round.Allocation{BCapexPct: 60, FPayoutPct: 40},
			},
			Expect: &Expectation{
				Absent: []string{"B", "F"},
				End:    &round.BalanceState{FirmCash: -40, AssetsBook: 100},
			},
		},
		{
			Name:        "all-capex",
			Description: "Whole distributable goes to assets",
			Balances:    round.BalanceState{FirmCash: 100, MarketCash: 50, AssetsBook: 200},
			Params: round.PolicyParams{
				OpMargin:    10,
				TaxStakePct: 20,
				Allocation:  round.Allocation{BCapexPct: 100},
			},
			Expect: &Expectation{
				Amounts: map[string]float64{"C": 20, "D": 4, "B": 116},
				Absent:  []string{"A", "F"},
				End:     &round.BalanceState{FirmCash: 0, MarketCash: 50, StakeholderCash: 4, AssetsBook: 316},
			},
		},
	}
}
