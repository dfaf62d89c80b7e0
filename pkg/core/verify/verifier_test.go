package verify

import (
	"strings"
	"testing"

	"cashflow_sim/pkg/core/round"
	"cashflow_sim/pkg/core/scenario"
)

func TestCheckRound_ComputedRoundsPass(t *testing.T) {
	starts := []round.BalanceState{
		{FirmCash: 50, MarketCash: 500, AssetsBook: 150},
		{FirmCash: 10, MarketCash: 30},
		{FirmCash: 10, AssetsBook: 100},
	}
	margins := []float64{-50, -10, 0, 7, 15}
	for _, start := range starts {
		for _, m := range margins {
			params := round.PolicyParams{
				IssueAmount: 60,
				OpMargin:    m,
				TaxStakePct: 30,
				Allocation:  round.Allocation{BCapexPct: 35, FPayoutPct: 45},
			}
			res := round.ComputeRound(start, params)
			if v := CheckRound(start, params, res); !v.Passed {
				t.Errorf("start=%+v margin=%v: %v", start, m, v.Warnings)
			}
		}
	}
}

func TestCheckRound_DetectsTampering(t *testing.T) {
	start := round.BalanceState{FirmCash: 50, MarketCash: 500, AssetsBook: 150}
	params := round.PolicyParams{
		IssueAmount: 80,
		OpMargin:    15,
		TaxStakePct: 25,
		Allocation:  round.Allocation{BCapexPct: 40, FPayoutPct: 40},
	}

	cases := []struct {
		name   string
		mutate func(*round.RoundResult)
		want   string
	}{
		{"swapped order", func(r *round.RoundResult) {
			r.Script[1], r.Script[2] = r.Script[2], r.Script[1]
		}, "precedes"},
		{"wrong endpoint", func(r *round.RoundResult) {
			r.Script[3].To = round.Investors
		}, "expected Firm->Assets"},
		{"retired code", func(r *round.RoundResult) {
			r.Script[0].Code = round.FlowCode(99)
		}, "invalid code"},
		{"end drift", func(r *round.RoundResult) {
			r.End.FirmCash += 1
		}, "replay ends at"},
		{"issue not clamped", func(r *round.RoundResult) {
			r.Derived.IssuePaid = 600
		}, "issue paid"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := round.ComputeRound(start, params)
			tc.mutate(&res)
			v := CheckRound(start, params, res)
			if v.Passed {
				t.Fatal("Expected verification to fail")
			}
			if !strings.Contains(strings.Join(v.Warnings, "\n"), tc.want) {
				t.Errorf("Expected a warning containing %q, got %v", tc.want, v.Warnings)
			}
		})
	}
}

func TestCheckRound_TaxInLossYear(t *testing.T) {
	start := round.BalanceState{FirmCash: 50, AssetsBook: 100}
	params := round.PolicyParams{OpMargin: -10, TaxStakePct: 25}
	res := round.ComputeRound(start, params)
	res.Script = append(res.Script, round.FlowStep{Code: round.CodeTax, From: round.Firm, To: round.GovStake, Amount: 1})

	v := CheckRound(start, params, res)
	if v.Passed {
		t.Fatal("Expected failure for tax in a loss year")
	}
}

func TestSelfTest_Builtin(t *testing.T) {
	results := SelfTest(scenario.Builtin())
	if len(results) != 5 {
		t.Fatalf("Expected 5 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("Scenario %s failed: %v", r.Name, r.Warnings)
		}
	}
	if !AllPassed(results) {
		t.Error("AllPassed should be true")
	}
}

func TestSelfTest_FailingExpectation(t *testing.T) {
	sc := scenario.Scenario{
		Name:     "wrong",
		Balances: round.BalanceState{FirmCash: 10, MarketCash: 30},
		Params:   round.PolicyParams{IssueAmount: 100},
		Rounds:   2,
		Expect: &scenario.Expectation{
			Amounts: map[string]float64{"A": 100, "D": 1},
			Absent:  []string{"A"},
			End:     &round.BalanceState{FirmCash: 110},
		},
	}
	results := SelfTest([]scenario.Scenario{sc})
	if results[0].Passed || AllPassed(results) {
		t.Fatal("Expected failure")
	}
	if len(results[0].Warnings) != 4 {
		t.Errorf("Expected 4 warnings, got %d: %v", len(results[0].Warnings), results[0].Warnings)
	}
}
