package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL renders an amount the way the dashboard shows money:
// "R$ 1.234.567,89".
func FormatBRL(v float64) string {
	return "R$ " + formatPTBR(decimal.NewFromFloat(v), 2)
}

// FormatPercent renders a ratio already expressed in percent with one
// decimal place, e.g. "42,5%".
func FormatPercent(v float64) string {
	return formatPTBR(decimal.NewFromFloat(v), 1) + "%"
}

func formatPTBR(d decimal.Decimal, places int32) string {
	fixed := d.Abs().StringFixed(places)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if d.IsNegative() && !d.Round(places).IsZero() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

// FormatCount renders an integer with PT-BR thousands separators.
func FormatCount(n int) string {
	return formatPTBR(decimal.NewFromInt(int64(n)), 0)
}
