// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing user-entered amounts and
// formatting balances for display in dollars.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var amountReplacer = strings.NewReplacer("$", "", ",", "", " ", "", "_", "")

// ParseAmount parses a user-entered amount such as "1,234.50", "$20" or "-15".
// Commas are thousands separators. Blank input is an error.
func ParseAmount(s string) (float64, error) {
	s = amountReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	v := d.InexactFloat64()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseBalance parses a balance form field. Blank or unparseable input is 0.
func ParseBalance(s string) float64 {
	v, err := ParseAmount(s)
	if err != nil {
		return 0
	}
	return v
}

// FormatNumber groups thousands and keeps up to two decimals, trimming
// trailing zeros: 1234.5 -> "1,234.5", -20 -> "-20".
func FormatNumber(v float64) string {
	d := dec(v).Round(2)
	neg := d.IsNegative()
	s := d.Abs().String()
	intPart, frac, _ := strings.Cut(s, ".")
	out := groupThousands(intPart)
	if frac != "" {
		out += "." + frac
	}
	if neg {
		return "-" + out
	}
	return out
}

// FormatMoney renders v as dollars: "$1,234", "$1,234.50", "-$20".
func FormatMoney(v float64) string {
	d := dec(v).Round(2)
	neg := d.IsNegative()
	d = d.Abs()
	var s string
	if d.Equal(d.Truncate(0)) {
		s = groupThousands(d.Truncate(0).String())
	} else {
		intPart, frac, _ := strings.Cut(d.StringFixed(2), ".")
		s = groupThousands(intPart) + "." + frac
	}
	if neg {
		return "-$" + s
	}
	return "$" + s
}

// FormatSigned renders a change with an explicit plus sign for gains.
func FormatSigned(v float64) string {
	if v >= 0 {
		return "+" + FormatMoney(v)
	}
	return FormatMoney(v)
}

// FormatThousands renders an axis tick in whole thousands: 12500 -> "$13k".
func FormatThousands(v float64) string {
	k := dec(v).Div(decimal.NewFromInt(1000)).Round(0)
	return "$" + k.String() + "k"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
