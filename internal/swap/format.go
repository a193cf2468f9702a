package swap

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	dustAmount   = decimal.New(1, -6)
	usdThousand  = decimal.NewFromInt(1_000)
	usdMillion   = decimal.NewFromInt(1_000_000)
	usdDustLimit = decimal.New(1, -2)
)

// FormatTokenAmount renders a human amount with at most maxDecimals places,
// trimming trailing zeros. Positive amounts below 0.000001 render as "<0.000001".
func FormatTokenAmount(amount string, maxDecimals int32) string {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || d.IsZero() {
		return "0"
	}
	if d.IsPositive() && d.LessThan(dustAmount) {
		return "<0.000001"
	}
	return d.Round(maxDecimals).String()
}

// FormatUSD renders a dollar value compactly: $0, <$0.01, $12.34, $1.2K, $3.4M.
func FormatUSD(amount float64) string {
	d := decimal.NewFromFloat(amount)
	switch {
	case d.IsZero():
		return "$0"
	case d.LessThan(usdDustLimit):
		return "<$0.01"
	case d.GreaterThanOrEqual(usdMillion):
		return "$" + d.Div(usdMillion).StringFixed(1) + "M"
	case d.GreaterThanOrEqual(usdThousand):
		return "$" + d.Div(usdThousand).StringFixed(1) + "K"
	default:
		return "$" + d.StringFixed(2)
	}
}
