// Package report renders a played round as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"cashflow_sim/pkg/core/round"
	"cashflow_sim/pkg/core/simulate"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown narrates one round: its flows, derived values and balances.
func Markdown(rec simulate.RoundRecord) string {
	var b strings.Builder
	res := rec.Result
	d := res.Derived

	fmt.Fprintf(&b, "## Round %d\n\n", rec.Round)
	fmt.Fprintf(&b, "Policy: issue %s, margin %s%%, tax & stakeholders %s%%, capex %s%%, payout %s%%, retain %s%%.\n\n",
		money(rec.Params.IssueAmount), num(rec.Params.OpMargin), num(rec.Params.TaxStakePct),
		num(rec.Params.Allocation.BCapexPct), num(rec.Params.Allocation.FPayoutPct), num(rec.Params.Allocation.RetainPct()))

	if len(res.Script) == 0 {
		b.WriteString("No cash moved this round.\n\n")
	} else {
		b.WriteString("| Step | From | To | Amount | Note |\n")
		b.WriteString("|---|---|---|---:|---|\n")
		for _, s := range res.Script {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", s.Code, s.From, s.To, money(s.Amount), escape(s.Note))
		}
		b.WriteString("\n")
	}

	b.WriteString("### Derived\n\n")
	fmt.Fprintf(&b, "- Issue paid: %s\n", money(d.IssuePaid))
	fmt.Fprintf(&b, "- Free cash flow: %s\n", money(d.OpCash))
	fmt.Fprintf(&b, "- Taxes & stakeholders: %s\n", money(d.TaxStake))
	fmt.Fprintf(&b, "- Distributable: %s\n", money(d.Distributable))
	fmt.Fprintf(&b, "- Invested (B): %s, paid out (F): %s, retained: %s\n\n", money(d.BCapex), money(d.FPayout), money(d.Retain))

	b.WriteString("### Balances\n\n")
	b.WriteString("| | Firm | Investors | Gov & stakeholders | Assets (book) | Total cash |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|\n")
	writeBalanceRow(&b, "Start", rec.Start)
	writeBalanceRow(&b, "End", res.End)

	return b.String()
}

func writeBalanceRow(b *strings.Builder, label string, s round.BalanceState) {
	fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n", label,
		money(s.FirmCash), money(s.MarketCash), money(s.StakeholderCash), money(s.AssetsBook), money(s.TotalCash()))
}

// SessionMarkdown narrates every round of a session.
func SessionMarkdown(s *simulate.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", s.ID)
	fmt.Fprintf(&b, "Rounds played: %d. Cumulative free cash flow: %s.\n\n", s.Round, money(s.CumulativeFCF))
	for _, rec := range s.History {
		b.WriteString(Markdown(rec))
		b.WriteString("\n")
	}
	return b.String()
}

// HTML converts Markdown produced by this package to HTML.
func HTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// money prints whole amounts without decimals and fractional ones with two.
func money(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func num(v float64) string {
	return fmt.Sprintf("%g", v)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
