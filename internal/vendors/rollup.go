// Package vendors ranks vendors by payment exposure and enriches the
// ranking with each vendor's trade.
package vendors

import (
	"fmt"
	"sort"
	"strings"

	"renohub/internal/core"
)

// Mode selects which payments count toward a vendor's total.
type Mode string

const (
	// ModeOutstanding sums unpaid payments. It is the dashboard default.
	ModeOutstanding Mode = "outstanding"
	// ModePaid sums settled payments (paid-to-date view).
	ModePaid Mode = "paid"

	DefaultLimit = 5
)

// ParseMode accepts "outstanding" and "paid", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOutstanding, "":
		return ModeOutstanding, nil
	case ModePaid:
		return ModePaid, nil
	}
	return "", fmt.Errorf("invalid vendor rollup mode %q: must be %q or %q", s, ModeOutstanding, ModePaid)
}

// Rollup sums amounts by vendor, sorts descending by amount then vendor
// name, and keeps the first limit rows. A limit below 1 means DefaultLimit.
func Rollup(payments []core.Payment, mode Mode, limit int) []core.VendorExposure {
	if limit < 1 {
		limit = DefaultLimit
	}
	totals := map[string]float64{}
	for _, p := range payments {
		if p.IsPaid() != (mode == ModePaid) {
			continue
		}
		vendor := strings.TrimSpace(p.Vendor)
		if vendor == "" {
			vendor = core.DefaultVendor
		}
		totals[vendor] += p.Amount
	}

	out := make([]core.VendorExposure, 0, len(totals))
	for vendor, amount := range totals {
		out = append(out, core.VendorExposure{Vendor: vendor, Amount: core.RoundCents(amount)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Vendor < out[j].Vendor
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
