package quote

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Placeholder shown when a value is missing.
const Missing = "—"

// Change is the move of a price against the previous close.
type Change struct {
	Diff decimal.Decimal
	Pct  decimal.Decimal
	OK   bool
}

// ComputeChange rounds diff and percent to 2 places. OK is false when either
// input is missing (zero).
func ComputeChange(price, prevClose float64) Change {
	if price == 0 || prevClose == 0 {
		return Change{}
	}
	cur := decimal.NewFromFloat(price)
	pc := decimal.NewFromFloat(prevClose)
	diff := cur.Sub(pc)
	pct := diff.Div(pc).Mul(decimal.NewFromInt(100))
	return Change{Diff: diff.Round(2), Pct: pct.Round(2), OK: true}
}

// Up is true for a flat or positive move.
func (c Change) Up() bool { return c.OK && c.Diff.Sign() >= 0 }

// String renders "+1.23 (+0.45%)" or the missing placeholder.
func (c Change) String() string {
	if !c.OK {
		return Missing
	}
	sign := ""
	if c.Diff.Sign() >= 0 {
		sign = "+"
	}
	return sign + c.Diff.StringFixed(2) + " (" + sign + c.Pct.StringFixed(2) + "%)"
}

// FormatPrice renders 1234.5 as "1,234.50"; zero is the missing placeholder.
func FormatPrice(v float64) string {
	if v == 0 {
		return Missing
	}
	s := decimal.NewFromFloat(v).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
