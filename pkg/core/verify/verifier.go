// Package verify checks computed rounds against the invariants of the
// allocation sequence and runs scenario fixtures as a self-test.
package verify

import (
	"fmt"
	"math"

	"cashflow_sim/pkg/core/round"
	"cashflow_sim/pkg/core/scenario"
)

// Tolerance for comparing balances that went through the same float steps.
const Tolerance = 1e-6

// VerificationResult holds the outcome of the integrity checks.
type VerificationResult struct {
	Passed   bool     `json:"passed"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *VerificationResult) failf(format string, args ...any) {
	r.Passed = false
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

var endpoints = map[round.FlowCode][2]round.Party{
	round.CodeIssue:  {round.Investors, round.Firm},
	round.CodeFCF:    {round.Assets, round.Firm},
	round.CodeTax:    {round.Firm, round.GovStake},
	round.CodeInvest: {round.Firm, round.Assets},
	round.CodePayout: {round.Firm, round.Investors},
}

// CheckRound verifies res, which must come from ComputeRound(start, params).
func CheckRound(start round.BalanceState, params round.PolicyParams, res round.RoundResult) VerificationResult {
	out := VerificationResult{Passed: true}
	d := res.Derived

	// 1. Codes, order, endpoints, positivity
	pos := map[round.FlowCode]int{}
	for i, step := range res.Script {
		if !step.Code.Valid() {
			out.failf("step %d has invalid code %s", i, step.Code)
			continue
		}
		if _, dup := pos[step.Code]; dup {
			out.failf("code %s appears twice", step.Code)
		}
		pos[step.Code] = i
		if ep := endpoints[step.Code]; step.From != ep[0] || step.To != ep[1] {
			out.failf("step %s goes %s->%s, expected %s->%s", step.Code, step.From, step.To, ep[0], ep[1])
		}
		if !(step.Amount > 0) {
			out.failf("step %s kept with non-positive amount %v", step.Code, step.Amount)
		}
	}
	for i := 1; i < len(res.Script); i++ {
		if narrativeIndex(res.Script[i].Code) < narrativeIndex(res.Script[i-1].Code) {
			out.failf("step %s precedes %s", res.Script[i-1].Code, res.Script[i].Code)
		}
	}

	// 2. Issue clamping
	wantIssue := math.Min(start.MarketCash, math.Max(0, params.IssueAmount))
	if math.Abs(d.IssuePaid-wantIssue) > Tolerance {
		out.failf("issue paid %v, expected min(market %v, max(0, %v)) = %v",
			d.IssuePaid, start.MarketCash, params.IssueAmount, wantIssue)
	}

	// 3. Tax only on gains
	if d.OpCash <= 0 {
		if _, ok := pos[round.CodeTax]; ok {
			out.failf("tax step present in a loss year (op cash %v)", d.OpCash)
		}
	}

	// 4. Allocation bounded by distributable (each share may round up half a unit)
	if d.BCapex+d.FPayout > d.Distributable+1 && sumPct(params) <= 100 {
		out.failf("B+F = %v exceeds distributable %v", d.BCapex+d.FPayout, d.Distributable)
	}

	// 5. Replay equivalence; a loss year's negative FCF has no step to replay
	frames := round.ComputeFrames(start, res.Script)
	if len(frames) != len(res.Script) {
		out.failf("replay produced %d frames for %d steps", len(frames), len(res.Script))
	}
	last := start
	if len(frames) > 0 {
		last = frames[len(frames)-1]
	}
	last.FirmCash += math.Min(0, d.OpCash)
	if !closeTo(last, res.End) {
		out.failf("replay ends at %+v, round end is %+v", last, res.End)
	}

	return out
}

func narrativeIndex(c round.FlowCode) int {
	for i, code := range round.Codes {
		if code == c {
			return i
		}
	}
	return len(round.Codes)
}

func sumPct(p round.PolicyParams) float64 {
	return p.Allocation.BCapexPct + p.Allocation.FPayoutPct
}

func closeTo(a, b round.BalanceState) bool {
	return math.Abs(a.FirmCash-b.FirmCash) <= Tolerance &&
		math.Abs(a.MarketCash-b.MarketCash) <= Tolerance &&
		math.Abs(a.StakeholderCash-b.StakeholderCash) <= Tolerance &&
		math.Abs(a.AssetsBook-b.AssetsBook) <= Tolerance
}

// =============================================================================
// SELF-TEST
// =============================================================================

// CaseResult is the outcome of one scenario.
type CaseResult struct {
	Name string `json:"name"`
	VerificationResult
}

// SelfTest runs every scenario's first round through CheckRound and its
// expectations. Extra rounds of multi-round scenarios are invariant-checked
// as well.
func SelfTest(cases []scenario.Scenario) []CaseResult {
	results := make([]CaseResult, 0, len(cases))
	for _, sc := range cases {
		cr := CaseResult{Name: sc.Name, VerificationResult: VerificationResult{Passed: true}}

		bal := sc.Balances
		n := max(sc.Rounds, 1)
		for i := 0; i < n; i++ {
			res := round.ComputeRound(bal, sc.Params)
			check := CheckRound(bal, sc.Params, res)
			for _, w := range check.Warnings {
				cr.failf("round %d: %s", i+1, w)
			}
			if i == 0 && sc.Expect != nil {
				checkExpectation(&cr.VerificationResult, sc.Expect, res)
			}
			bal = res.End
		}
		results = append(results, cr)
	}
	return results
}

func checkExpectation(out *VerificationResult, e *scenario.Expectation, res round.RoundResult) {
	amounts := map[string]float64{}
	for _, step := range res.Script {
		amounts[step.Code.String()] = step.Amount
	}
	for _, code := range sortedKeys(e.Amounts) {
		want := e.Amounts[code]
		got, ok := amounts[code]
		if !ok {
			out.failf("expected step %s (%v) is missing", code, want)
			continue
		}
		if math.Abs(got-want) > Tolerance {
			out.failf("step %s amount %v, expected %v", code, got, want)
		}
	}
	for _, code := range e.Absent {
		if got, ok := amounts[code]; ok {
			out.failf("step %s (%v) should be absent", code, got)
		}
	}
	if e.End != nil && !closeTo(res.End, *e.End) {
		out.failf("end %+v, expected %+v", res.End, *e.End)
	}
}

// sortedKeys returns flow letters in narrative order so messages are stable.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for _, c := range round.Codes {
		if _, ok := m[c.String()]; ok {
			keys = append(keys, c.String())
		}
	}
	return keys
}

// AllPassed reports whether every case passed.
func AllPassed(results []CaseResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
