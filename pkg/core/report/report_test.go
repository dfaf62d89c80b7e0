package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow_sim/pkg/core/round"
	"cashflow_sim/pkg/core/simulate"
)

func playOne(t *testing.T) (*simulate.Session, simulate.RoundRecord) {
	t.Helper()
	s := simulate.NewSession("r1", round.BalanceState{FirmCash: 50, MarketCash: 500, AssetsBook: 150})
	rec := s.Play(round.PolicyParams{
		IssueAmount: 80,
		OpMargin:    15,
		TaxStakePct: 25,
		Allocation:  round.Allocation{BCapexPct: 40, FPayoutPct: 40},
	})
	return s, rec
}

func TestMarkdown(t *testing.T) {
	_, rec := playOne(t)
	out := Markdown(rec)

	assert.Contains(t, out, "## Round 1")
	assert.Contains(t, out, "| A | Investors | Firm | 80 |")
	assert.Contains(t, out, "| C | Assets | Firm | 22.50 |")
	assert.Contains(t, out, "| D | Firm | GovStake | 6 |")
	assert.Contains(t, out, "| B | Firm | Assets | 59 |")
	assert.Contains(t, out, "| F | Firm | Investors | 59 |")
	assert.Contains(t, out, "retain 20%")
	assert.Contains(t, out, "| End | 28.50 | 479 | 6 | 209 | 513.50 |")
	assert.NotContains(t, out, "| E |")
}

func TestMarkdown_EmptyRound(t *testing.T) {
	s := simulate.NewSession("r2", round.BalanceState{FirmCash: 10, AssetsBook: 100})
	rec := s.Play(round.PolicyParams{OpMargin: -50, Allocation: round.Allocation{BCapexPct: 60, FPayoutPct: 40}})
	assert.Contains(t, Markdown(rec), "No cash moved this round.")
}

func TestHTML(t *testing.T) {
	s, _ := playOne(t)
	html, err := HTML(SessionMarkdown(s))
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Session r1</h1>")
	assert.Contains(t, html, "<table>")
	assert.Equal(t, 2, strings.Count(html, "<table>"))
	assert.Contains(t, html, "<td>GovStake</td>")
}
