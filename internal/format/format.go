// Package format renders prices and related figures the way the dashboard
// displays them: en-US currency with comma grouping, signed percentages, and
// compact market caps.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency formats v as USD: two decimal places, extended to up to six
// significant decimals for sub-dollar prices (trailing zeros trimmed, never
// below two), e.g. 29000.12 -> "$29,000.12", 0.5 -> "$0.50",
// 0.123456 -> "$0.123456".
func Currency(v float64) string {
	maxPlaces := int32(2)
	if v < 1 {
		maxPlaces = 6
	}
	d := decimal.NewFromFloat(v)
	neg := d.IsNegative()
	d = d.Abs()

	s := d.StringFixed(maxPlaces)
	intPart, fracPart, _ := strings.Cut(s, ".")
	if maxPlaces > 2 {
		fracPart = strings.TrimRight(fracPart, "0")
		for len(fracPart) < 2 {
			fracPart += "0"
		}
	}

	out := "$" + group(intPart) + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// Percentage formats a percent value with an explicit sign, e.g. "+2.34%".
func Percentage(v float64) string {
	sign := ""
	if v >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, v)
}

// MarketCap compacts large dollar figures, e.g. "$1.20T", "$500.00B",
// "$10.00M"; smaller values fall back to Currency.
func MarketCap(v float64) string {
	const (
		trillion = 1e12
		billion  = 1e9
		million  = 1e6
	)
	switch {
	case v >= trillion:
		return fmt.Sprintf("$%.2fT", v/trillion)
	case v >= billion:
		return fmt.Sprintf("$%.2fB", v/billion)
	case v >= million:
		return fmt.Sprintf("$%.2fM", v/million)
	default:
		return Currency(v)
	}
}

// Date renders a timestamp as an en-US short date, e.g. "Apr 5, 2025".
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// group inserts comma thousands separators into a bare integer string.
func group(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
