// Package gates decides whether project-phase gates are contractually
// complete and whether payments tied to them may be released.
package gates

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	// KeyRequiredByGate holds the JSON requirement map, gate -> titles.
	KeyRequiredByGate = "REQUIRED_BY_GATE"
	// KeyGateKeywords extends the payment keyword table, keyword -> gate.
	KeyGateKeywords = "GATE_KEYWORDS"
	// PreConstruction is the requirement-map entry listing deliverables that
	// must be approved before any payment is released. It is not a gate.
	PreConstruction = "PRE_CONSTRUCTION"
	// Uncategorized is the gate of payments no keyword matches. It never
	// blocks.
	Uncategorized = "Uncategorized"
)

// Requirements maps a gate to the deliverable titles it requires.
type Requirements map[string][]string

// ParseRequirements decodes the requirement map. Blank titles are dropped.
// Empty input yields an empty map; malformed input yields an empty map and
// an error for the caller to log.
func ParseRequirements(raw string) (Requirements, error) {
	out := Requirements{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}
	var decoded map[string][]string
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return out, fmt.Errorf("parse %s: %w", KeyRequiredByGate, err)
	}
	for gate, titles := range decoded {
		gate = strings.TrimSpace(gate)
		if gate == "" {
			continue
		}
		kept := make([]string, 0, len(titles))
		for _, t := range titles {
			if t = strings.TrimSpace(t); t != "" {
				kept = append(kept, t)
			}
		}
		out[gate] = kept
	}
	return out, nil
}

// Keyword routes payments whose title contains Match to Gate.
type Keyword struct {
	Match string
	Gate  string
}

// DefaultKeywords maps permit and authority fees to the submission gate and
// tranche or drawing payments to the construction documentation gate.
var DefaultKeywords = []Keyword{
	{Match: "permit", Gate: "G2"},
	{Match: "authority", Gate: "G2"},
	{Match: "tranche", Gate: "G3"},
	{Match: "construction drawing", Gate: "G3"},
}

// ParseKeywords decodes a GATE_KEYWORDS override and places it ahead of the
// defaults. Longer keywords are tried first within the override.
func ParseKeywords(raw string) ([]Keyword, error) {
	defaults := append([]Keyword(nil), DefaultKeywords...)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaults, nil
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return defaults, fmt.Errorf("parse %s: %w", KeyGateKeywords, err)
	}
	custom := make([]Keyword, 0, len(decoded))
	for match, gate := range decoded {
		match = strings.ToLower(strings.TrimSpace(match))
		gate = strings.TrimSpace(gate)
		if match == "" || gate == "" {
			continue
		}
		custom = append(custom, Keyword{Match: match, Gate: gate})
	}
	sort.Slice(custom, func(i, j int) bool {
		if len(custom[i].Match) != len(custom[j].Match) {
			return len(custom[i].Match) > len(custom[j].Match)
		}
		return custom[i].Match < custom[j].Match
	})
	return append(custom, defaults...), nil
}
