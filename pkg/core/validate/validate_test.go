package validate

import (
	"math"
	"testing"

	"cashflow_sim/pkg/core/round"
)

func TestClampParams_InRangeUntouched(t *testing.T) {
	p := round.PolicyParams{
		IssueAmount: 80,
		OpMargin:    15,
		TaxStakePct: 25,
		Allocation:  round.Allocation{BCapexPct: 40, FPayoutPct: 40},
	}
	out, notes := ClampParams(p, DefaultLimits())
	if out != p {
		t.Errorf("Expected params unchanged, got %+v", out)
	}
	if len(notes) != 0 {
		t.Errorf("Expected no notes, got %v", notes)
	}
}

func TestClampParams_OutOfRange(t *testing.T) {
	p := round.PolicyParams{
		IssueAmount: -10,
		OpMargin:    90,
		TaxStakePct: 120,
		Allocation:  round.Allocation{BCapexPct: 70, FPayoutPct: 60},
	}
	out, notes := ClampParams(p, DefaultLimits())

	if out.IssueAmount != 0 {
		t.Errorf("Expected issue 0, got %f", out.IssueAmount)
	}
	if out.OpMargin != 50 {
		t.Errorf("Expected margin 50, got %f", out.OpMargin)
	}
	if out.TaxStakePct != 100 {
		t.Errorf("Expected tax 100, got %f", out.TaxStakePct)
	}
	if out.Allocation.BCapexPct != 70 || out.Allocation.FPayoutPct != 30 {
		t.Errorf("Expected allocation 70/30, got %+v", out.Allocation)
	}
	if out.Allocation.RetainPct() != 0 {
		t.Errorf("Expected retain 0, got %f", out.Allocation.RetainPct())
	}
	if len(notes) != 4 {
		t.Errorf("Expected 4 notes, got %d: %v", len(notes), notes)
	}
}

func TestClampParams_NonFinite(t *testing.T) {
	p := round.PolicyParams{OpMargin: math.NaN(), IssueAmount: math.Inf(1)}
	out, _ := ClampParams(p, DefaultLimits())
	if out.OpMargin != -50 {
		t.Errorf("Expected NaN margin to become -50, got %f", out.OpMargin)
	}
	if out.IssueAmount != 0 {
		t.Errorf("Expected Inf issue to become 0, got %f", out.IssueAmount)
	}
}

func TestStrict(t *testing.T) {
	if err := Strict(round.PolicyParams{OpMargin: 10}, DefaultLimits()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	err := Strict(round.PolicyParams{TaxStakePct: 101}, DefaultLimits())
	if err == nil {
		t.Fatal("Expected error for tax 101")
	}
}

func TestCheckBalances(t *testing.T) {
	if err := CheckBalances(round.BalanceState{FirmCash: 50, MarketCash: 500, AssetsBook: 150}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := CheckBalances(round.BalanceState{FirmCash: -1}); err == nil {
		t.Error("Expected error for negative firm cash")
	}
	if err := CheckBalances(round.BalanceState{AssetsBook: math.NaN()}); err == nil {
		t.Error("Expected error for NaN assets")
	}
}
