package round

// ComputeFrames replays script against start and returns the balances after
// each step. Amounts are taken from the steps as recorded, never re-derived,
// so the last frame matches the End of the round that produced the script.
//
// A loss year is the exception: its negative free cash flow is applied by
// ComputeRound but has no step, so the last frame is higher than End by
// the loss. Callers always adopt End.
func ComputeFrames(start BalanceState, script []FlowStep) []BalanceState {
	frames := make([]BalanceState, 0, len(script))
	cur := start
	for _, step := range script {
		cur = apply(cur, step)
		frames = append(frames, cur)
	}
	return frames
}

func apply(b BalanceState, step FlowStep) BalanceState {
	amt := step.Amount
	switch step.Code {
	case CodeIssue:
		b.MarketCash -= amt
		b.FirmCash += amt
	case CodeFCF:
		b.FirmCash += amt
	case CodeTax:
		b.FirmCash -= amt
		b.StakeholderCash += amt
	case CodeInvest:
		b.FirmCash -= amt
		b.AssetsBook += amt
	case CodePayout:
		b.FirmCash -= amt
		b.MarketCash += amt
	}
	return b
}
