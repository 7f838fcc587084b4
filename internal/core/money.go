// Package core provides amount parsing and rounding utilities.
//
// Upstream stores hold ringgit amounts either as numbers or as display
// strings such as "RM 12,500.00". Everything downstream works on float64
// ringgit that are finite and never negative.
package core

import (
	"math"
	"strconv"
	"strings"
)

var currencyPrefixes = []string{"MYR", "RM"}

// ParseAmount converts a display string to an amount.
//
// It strips a leading currency code and accepts both thousands separators
// ("1,200.50") and a lone decimal comma ("12,5"). Negative values are
// rejected so callers can fall back to the next candidate field.
//
// Examples:
//
//	ParseAmount("RM 1,200.50") -> 1200.5, true
//	ParseAmount("12,5")        -> 12.5, true
//	ParseAmount("n/a")         -> 0, false
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	for _, p := range currencyPrefixes {
		if strings.HasPrefix(upper, p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else if i := strings.LastIndex(s, ","); i >= 0 {
		if len(s)-i-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s[:i], ",", "") + "." + s[i+1:]
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

// SanitizeAmount maps NaN, infinities and negatives to 0.
func SanitizeAmount(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// RoundCents rounds half away from zero to two decimals.
func RoundCents(f float64) float64 {
	return math.Round(f*100) / 100
}

// Ratio returns num/den clamped to [0,1]; a non-positive denominator yields 0.
func Ratio(num, den float64) float64 {
	if den <= 0 || math.IsNaN(num) || math.IsNaN(den) {
		return 0
	}
	r := num / den
	switch {
	case math.IsNaN(r) || r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
