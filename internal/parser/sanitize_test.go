package parser

import "testing"

func TestSanitizeNumberStrings(t *testing.T) {
	cases := []struct {
		input string
		want  float64
	}{
		{"$1,200.00", 1200.0},
		{"1,200", 1200.0},
		{"₹500", 500.0},
		{"Rs 250.50", 250.5},
		{"  42.7  ", 42.7},
		{"N/A", 0.0},
		{"n/a", 0.0},
		{"null", 0.0},
		{"NaN", 0.0},
		{"none", 0.0},
		{"", 0.0},
		{"   ", 0.0},
		{"12abc", 0.0},
		{"1.00", 1.0},
	}
	for _, c := range cases {
		if got := SanitizeNumber(c.input); got != c.want {
			t.Errorf("SanitizeNumber(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestSanitizeNumberScalars(t *testing.T) {
	if got := SanitizeNumber(2); got != 2.0 {
		t.Errorf("SanitizeNumber(2) = %v, want 2.0", got)
	}
	if got := SanitizeNumber(2.5); got != 2.5 {
		t.Errorf("SanitizeNumber(2.5) = %v, want 2.5", got)
	}
	if got := SanitizeNumber(int64(7)); got != 7.0 {
		t.Errorf("SanitizeNumber(int64(7)) = %v, want 7.0", got)
	}
	if got := SanitizeNumber(nil); got != 0.0 {
		t.Errorf("SanitizeNumber(nil) = %v, want 0.0", got)
	}
	if got := SanitizeNumber([]string{"x"}); got != 0.0 {
		t.Errorf("SanitizeNumber(slice) = %v, want 0.0", got)
	}
}
