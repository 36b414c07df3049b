package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1234.5", 1234.5, true},
		{"1,234.50", 1234.5, true},
		{" $2,000 ", 2000, true},
		{"-20", -20, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseBalanceDefaultsToZero(t *testing.T) {
	for _, in := range []string{"", "  ", "n/a", "12abc"} {
		if got := ParseBalance(in); got != 0 {
			t.Fatalf("%q expected 0, got %v", in, got)
		}
	}
	if got := ParseBalance("4,500.25"); got != 4500.25 {
		t.Fatalf("expected 4500.25, got %v", got)
	}
}

func TestFormatting(t *testing.T) {
	cases := []struct {
		name string
		fn   func(float64) string
		in   float64
		want string
	}{
		{"number grouped", FormatNumber, 1234567.5, "1,234,567.5"},
		{"number small", FormatNumber, 12, "12"},
		{"number negative", FormatNumber, -2500, "-2,500"},
		{"money whole", FormatMoney, 1234, "$1,234"},
		{"money cents", FormatMoney, 1234.5, "$1,234.50"},
		{"money negative", FormatMoney, -20, "-$20"},
		{"money zero", FormatMoney, 0, "$0"},
		{"signed gain", FormatSigned, 500, "+$500"},
		{"signed zero", FormatSigned, 0, "+$0"},
		{"signed loss", FormatSigned, -75.25, "-$75.25"},
		{"thousands", FormatThousands, 12500, "$13k"},
		{"thousands small", FormatThousands, 400, "$0k"},
		{"thousands negative", FormatThousands, -3000, "$-3k"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.fn(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
