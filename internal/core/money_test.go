package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"40.5", 4050, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	m := Money{Cents: 4050}
	if got := m.Units(); got != 40.5 {
		t.Fatalf("Units expected 40.5, got %v", got)
	}
	if got := m.Add(Money{Cents: -50}); got.Cents != 4000 {
		t.Fatalf("Add expected 4000, got %d", got.Cents)
	}
	if got := m.Neg(); got.Cents != -4050 {
		t.Fatalf("Neg expected -4050, got %d", got.Cents)
	}
}
