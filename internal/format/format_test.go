package format

import (
	"testing"
	"time"
)

func TestCurrency(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{103, "$103.00"},
		{29000.12, "$29,000.12"},
		{1234567.891, "$1,234,567.89"},
		{0.5, "$0.50"},
		{0.123456, "$0.123456"},
		{0.1, "$0.10"},
		{1, "$1.00"},
		{-3.5, "-$3.50"},
	}
	for _, c := range cases {
		if got := Currency(c.in); got != c.want {
			t.Fatalf("Currency(%v) got %q want %q", c.in, got, c.want)
		}
	}
}

func TestPercentage(t *testing.T) {
	if got := Percentage(2.345); got != "+2.35%" {
		t.Fatalf("got %q", got)
	}
	if got := Percentage(-1.5); got != "-1.50%" {
		t.Fatalf("got %q", got)
	}
	if got := Percentage(0); got != "+0.00%" {
		t.Fatalf("got %q", got)
	}
}

func TestMarketCap(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1.2e12, "$1.20T"},
		{5e11, "$500.00B"},
		{1e7, "$10.00M"},
		{999999, "$999,999.00"},
	}
	for _, c := range cases {
		if got := MarketCap(c.in); got != c.want {
			t.Fatalf("MarketCap(%v) got %q want %q", c.in, got, c.want)
		}
	}
}

func TestDate(t *testing.T) {
	d := time.Date(2025, time.April, 5, 12, 0, 0, 0, time.UTC)
	if got := Date(d); got != "Apr 5, 2025" {
		t.Fatalf("got %q", got)
	}
	if got := Date(time.Time{}); got != "" {
		t.Fatalf("zero time got %q", got)
	}
}
