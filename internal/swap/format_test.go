package swap

import "testing"

func TestFormatTokenAmount(t *testing.T) {
	cases := map[string]string{
		"0":          "0",
		"abc":        "0",
		"1.5":        "1.5",
		"100":        "100",
		"0.0000001":  "<0.000001",
		"1.23456789": "1.234568",
		"2.500000":   "2.5",
	}
	for input, want := range cases {
		if got := FormatTokenAmount(input, 6); got != want {
			t.Fatalf("%q: expected %q, got %q", input, want, got)
		}
	}
}

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{0, "$0"},
		{0.004, "<$0.01"},
		{12.345, "$12.35"},
		{999.999, "$1000.00"},
		{1500, "$1.5K"},
		{2_340_000, "$2.3M"},
	}
	for _, tc := range cases {
		if got := FormatUSD(tc.amount); got != tc.want {
			t.Fatalf("%v: expected %q, got %q", tc.amount, tc.want, got)
		}
	}
}
