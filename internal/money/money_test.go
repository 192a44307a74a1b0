package money

import (
	"errors"
	"testing"
)

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{5, "$5.00"},
		{1234.5, "$1,234.50"},
		{1234567.25, "$1,234,567.25"},
		{-42.1, "-$42.10"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatUSD(tt.in); got != tt.want {
				t.Errorf("FormatUSD(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	d, err := ParsePrice(" 19.90 ")
	if err != nil {
		t.Fatalf("ParsePrice() error = %v", err)
	}
	if d.StringFixed(2) != "19.90" {
		t.Errorf("ParsePrice() = %s, want 19.90", d.StringFixed(2))
	}

	for _, bad := range []string{"", "  ", "abc", "1,5"} {
		if _, err := ParsePrice(bad); !errors.Is(err, ErrInvalidPrice) {
			t.Errorf("ParsePrice(%q) error = %v, want ErrInvalidPrice", bad, err)
		}
	}
}
