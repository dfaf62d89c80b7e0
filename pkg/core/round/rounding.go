package round

import (
	"math"

	"github.com/shopspring/decimal"
)

var half = decimal.NewFromFloat(0.5)

// roundHalfUp rounds to the nearest whole unit with ties going toward +Inf
// (2.5 -> 3, -2.5 -> -2). The addition is done in decimal so values just
// below a tie are not pushed over it by float error.
// NaN and Inf are returned unchanged.
func roundHalfUp(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Add(half).Floor().InexactFloat64()
}
