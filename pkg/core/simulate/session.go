// Package simulate plays successive rounds, carrying each round's end state
// into the next and keeping the cross-round totals the calculator leaves to
// its caller.
package simulate

import (
	"time"

	"cashflow_sim/pkg/core/round"
)

// RoundRecord is one played round.
type RoundRecord struct {
	Round    int                  `json:"round"` // 1-based
	Params   round.PolicyParams   `json:"params"`
	Start    round.BalanceState   `json:"start"`
	Result   round.RoundResult    `json:"result"`
	Frames   []round.BalanceState `json:"frames"`
	PlayedAt time.Time            `json:"played_at"`
}

// Session is a sequence of rounds from a fixed starting point.
// A Session is not safe for concurrent use.
type Session struct {
	ID            string             `json:"id"`
	Round         int                `json:"round"` // rounds played so far
	Start         round.BalanceState `json:"start"`
	Balances      round.BalanceState `json:"balances"`
	CumulativeFCF float64            `json:"cumulative_fcf"` // sum of positive free cash flow
	History       []RoundRecord      `json:"history"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// now is swapped in tests.
var now = time.Now

// NewSession starts a session at start.
func NewSession(id string, start round.BalanceState) *Session {
	t := now()
	return &Session{
		ID:        id,
		Start:     start,
		Balances:  start,
		History:   []RoundRecord{},
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// Play computes one round from the current balances and adopts its end state.
func (s *Session) Play(params round.PolicyParams) RoundRecord {
	start := s.Balances
	res := round.ComputeRound(start, params)

	s.Round++
	rec := RoundRecord{
		Round:    s.Round,
		Params:   params,
		Start:    start,
		Result:   res,
		Frames:   round.ComputeFrames(start, res.Script),
		PlayedAt: now(),
	}

	s.Balances = res.End
	if res.Derived.OpCash > 0 {
		s.CumulativeFCF += res.Derived.OpCash
	}
	s.History = append(s.History, rec)
	s.UpdatedAt = rec.PlayedAt
	return rec
}

// Last returns the most recent round.
func (s *Session) Last() (RoundRecord, bool) {
	if len(s.History) == 0 {
		return RoundRecord{}, false
	}
	return s.History[len(s.History)-1], true
}

// Clone returns a copy that can be played or reset without touching s.
// Recorded rounds are shared; they are never modified after Play.
func (s *Session) Clone() *Session {
	cp := *s
	cp.History = append(make([]RoundRecord, 0, len(s.History)+1), s.History...)
	return &cp
}

// Reset returns to the starting balances and drops the history.
func (s *Session) Reset() {
	s.Round = 0
	s.Balances = s.Start
	s.CumulativeFCF = 0
	s.History = []RoundRecord{}
	s.UpdatedAt = now()
}

// Run plays n rounds with the same policy and returns them in order.
func Run(start round.BalanceState, params round.PolicyParams, n int) []RoundRecord {
	s := NewSession("", start)
	out := make([]RoundRecord, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, s.Play(params))
	}
	return out
}
