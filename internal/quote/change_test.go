package quote

import "testing"

func TestComputeChange(t *testing.T) {
	cases := []struct {
		price, pc float64
		want      string
		up        bool
	}{
		{101.5, 100, "+1.50 (+1.50%)", true},
		{99, 100, "-1.00 (-1.00%)", false},
		{100, 100, "+0.00 (+0.00%)", true},
		{512.34, 509.87, "+2.47 (+0.48%)", true},
		{0, 100, Missing, false},
		{100, 0, Missing, false},
	}
	for _, tc := range cases {
		c := ComputeChange(tc.price, tc.pc)
		if got := c.String(); got != tc.want {
			t.Errorf("ComputeChange(%v, %v) = %q, want %q", tc.price, tc.pc, got, tc.want)
		}
		if c.Up() != tc.up {
			t.Errorf("ComputeChange(%v, %v).Up() = %v", tc.price, tc.pc, c.Up())
		}
	}
}

func TestFormatPrice(t *testing.T) {
	cases := map[float64]string{
		0:          Missing,
		5.5:        "5.50",
		512.345:    "512.35",
		1234.5:     "1,234.50",
		42031.1:    "42,031.10",
		1234567.89: "1,234,567.89",
		-1234.5:    "-1,234.50",
	}
	for in, want := range cases {
		if got := FormatPrice(in); got != want {
			t.Errorf("FormatPrice(%v) = %q, want %q", in, got, want)
		}
	}
}
