// Package round provides the deterministic cash allocation calculator.
// This file defines the balance, policy and flow-step types for one round.
package round

import (
	"fmt"
)

// =============================================================================
// BALANCES
// =============================================================================

// BalanceState holds the four state slots of the simulation.
type BalanceState struct {
	FirmCash        float64 `json:"firm_cash" yaml:"firm_cash"`               // F
	MarketCash      float64 `json:"market_cash" yaml:"market_cash"`           // I: investors, available for issuance
	StakeholderCash float64 `json:"stakeholder_cash" yaml:"stakeholder_cash"` // GS: cumulative taxes and stakeholder payments
	AssetsBook      float64 `json:"assets_book" yaml:"assets_book"`           // A: book value, not liquid cash
}

// TotalCash returns F + I + GS. Assets are book value and are excluded.
func (b BalanceState) TotalCash() float64 {
	return b.FirmCash + b.MarketCash + b.StakeholderCash
}

// =============================================================================
// POLICY
// =============================================================================

// Allocation splits distributable cash between capex (B) and payouts (F).
// Whatever is left is retained in the firm.
type Allocation struct {
	BCapexPct  float64 `json:"b_capex_pct" yaml:"b_capex_pct"`
	FPayoutPct float64 `json:"f_payout_pct" yaml:"f_payout_pct"`
}

// RetainPct is the non-negative remainder 100 - B - F.
func (a Allocation) RetainPct() float64 {
	r := 100 - a.BCapexPct - a.FPayoutPct
	if r < 0 {
		return 0
	}
	return r
}

// PolicyParams are the per-round inputs chosen by the caller.
type PolicyParams struct {
	IssueAmount float64    `json:"issue_amount" yaml:"issue_amount"`   // desired draw from markets (step A)
	OpMargin    float64    `json:"op_margin" yaml:"op_margin"`         // % of assets, signed (step C)
	TaxStakePct float64    `json:"tax_stake_pct" yaml:"tax_stake_pct"` // % of positive FCF (step D)
	Allocation  Allocation `json:"allocation" yaml:"allocation"`
}

// =============================================================================
// FLOW CODES & PARTIES
// =============================================================================

// FlowCode identifies one of the five flows of a round.
// The zero value is not a valid code.
type FlowCode uint8

const (
	CodeIssue  FlowCode = iota + 1 // A: markets -> firm
	CodeFCF                        // C: assets -> firm
	CodeTax                        // D: firm -> government & stakeholders
	CodeInvest                     // B: firm -> assets
	CodePayout                     // F: firm -> markets
)

// Codes lists every flow code in narrative order.
var Codes = []FlowCode{CodeIssue, CodeFCF, CodeTax, CodeInvest, CodePayout}

var codeLetters = map[FlowCode]string{
	CodeIssue:  "A",
	CodeFCF:    "C",
	CodeTax:    "D",
	CodeInvest: "B",
	CodePayout: "F",
}

// Valid reports whether c is one of the five defined codes.
func (c FlowCode) Valid() bool {
	_, ok := codeLetters[c]
	return ok
}

func (c FlowCode) String() string {
	if s, ok := codeLetters[c]; ok {
		return s
	}
	return fmt.Sprintf("FlowCode(%d)", uint8(c))
}

// ParseFlowCode maps a letter back to its code. "E" was retired and is rejected.
func ParseFlowCode(s string) (FlowCode, error) {
	for c, letter := range codeLetters {
		if letter == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown flow code %q", s)
}

func (c FlowCode) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid flow code %d", uint8(c))
	}
	return []byte(codeLetters[c]), nil
}

func (c *FlowCode) UnmarshalText(text []byte) error {
	parsed, err := ParseFlowCode(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Party is a source or destination of a flow.
type Party uint8

const (
	Firm Party = iota + 1
	Investors
	GovStake
	Assets
)

var partyNames = map[Party]string{
	Firm:      "Firm",
	Investors: "Investors",
	GovStake:  "GovStake",
	Assets:    "Assets",
}

func (p Party) String() string {
	if s, ok := partyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Party(%d)", uint8(p))
}

func (p Party) MarshalText() ([]byte, error) {
	s, ok := partyNames[p]
	if !ok {
		return nil, fmt.Errorf("invalid party %d", uint8(p))
	}
	return []byte(s), nil
}

func (p *Party) UnmarshalText(text []byte) error {
	for party, name := range partyNames {
		if name == string(text) {
			*p = party
			return nil
		}
	}
	return fmt.Errorf("unknown party %q", string(text))
}

// =============================================================================
// RESULTS
// =============================================================================

// FlowStep is one entry of the round script.
type FlowStep struct {
	Code   FlowCode `json:"code"`
	From   Party    `json:"from"`
	To     Party    `json:"to"`
	Amount float64  `json:"amount"`
	Note   string   `json:"note"`
}

// Derived exposes the intermediate values of a round for display and audit.
type Derived struct {
	IssuePaid     float64 `json:"issue_paid"`
	OpCash        float64 `json:"op_cash"` // unrounded, may be negative
	TaxStake      float64 `json:"tax_stake"`
	Distributable float64 `json:"distributable"`
	BCapex        float64 `json:"b_capex"`
	FPayout       float64 `json:"f_payout"`
	Retain        float64 `json:"retain"`
}

// RoundResult is the output of ComputeRound.
// End is authoritative; callers adopt it rather than re-deriving from Script.
type RoundResult struct {
	Script  []FlowStep   `json:"script"`
	End     BalanceState `json:"end"`
	Derived Derived      `json:"derived"`
}
