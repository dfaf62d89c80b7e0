package round

import (
	"fmt"
	"math"
)

// ComputeRound runs one round of the cash allocation sequence
// (A issue, C free cash flow, D taxes, then B invest / F payout).
//
// Inputs are not validated; out-of-range values flow through the formulas.
// Steps whose amount is not strictly positive are left out of the script.
func ComputeRound(balances BalanceState, params PolicyParams) RoundResult {
	w := balances

	// 1. Issue securities (A): capped by what markets hold, never negative
	issue := math.Max(0, math.Min(w.MarketCash, params.IssueAmount))
	w.MarketCash -= issue
	w.FirmCash += issue

	// 2. Free cash flow (C): unclamped and unrounded, a loss reduces firm cash
	opCash := w.AssetsBook * (params.OpMargin / 100)
	w.FirmCash += opCash

	// 3. Taxes & stakeholders (D): only on the positive part of FCF
	taxStake := roundHalfUp(params.TaxStakePct / 100 * math.Max(0, opCash))
	w.FirmCash -= taxStake
	w.StakeholderCash += taxStake

	// 4. Allocation (B, F) off post-D firm cash
	distributable := math.Max(0, w.FirmCash)
	bCapex := roundHalfUp(params.Allocation.BCapexPct / 100 * distributable)
	fPayout := roundHalfUp(params.Allocation.FPayoutPct / 100 * distributable)
	retain := math.Max(0, distributable-bCapex-fPayout)

	// Applied one flow at a time, in the order ComputeFrames replays them.
	w.FirmCash -= bCapex
	w.AssetsBook += bCapex
	w.FirmCash -= fPayout
	w.MarketCash += fPayout

	candidates := []FlowStep{
		{Code: CodeIssue, From: Investors, To: Firm, Amount: issue,
			Note: "Issue securities to financial markets"},
		{Code: CodeFCF, From: Assets, To: Firm, Amount: opCash,
			Note: fmt.Sprintf("Free cash flow at %g%% operating margin", params.OpMargin)},
		{Code: CodeTax, From: Firm, To: GovStake, Amount: taxStake,
			Note: fmt.Sprintf("Taxes & stakeholders at %g%% of free cash flow", params.TaxStakePct)},
		{Code: CodeInvest, From: Firm, To: Assets, Amount: bCapex,
			Note: fmt.Sprintf("Invest in assets (%g%% of distributable)", params.Allocation.BCapexPct)},
		{Code: CodePayout, From: Firm, To: Investors, Amount: fPayout,
			Note: fmt.Sprintf("Pay financial markets (%g%% of distributable)", params.Allocation.FPayoutPct)},
	}

	script := make([]FlowStep, 0, len(candidates))
	for _, step := range candidates {
		if step.Amount > 0 {
			script = append(script, step)
		}
	}

	return RoundResult{
		Script: script,
		End:    w,
		Derived: Derived{
			IssuePaid:     issue,
			OpCash:        opCash,
			TaxStake:      taxStake,
			Distributable: distributable,
			BCapex:        bCapex,
			FPayout:       fPayout,
			Retain:        retain,
		},
	}
}
