package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"renohub/internal/core"
	"renohub/internal/records"
)

const (
	// KeyRequiredByGate holds the JSON requirement map, gate -> titles.
	KeyRequiredByGate = "REQUIRED_BY_GATE"
	// KeyOwnerAliases extends the owner alias table, token -> display name.
	KeyOwnerAliases = "OWNER_ALIASES"
)

// DefaultOwnerAliases resolves lower-cased owner tokens to display names.
var DefaultOwnerAliases = map[string]string{
	"solomon":   "Solomon",
	"harminder": "Harminder",
}

var (
	riskValues        = []string{core.RiskOK, core.RiskAtRisk}
	deliverableValues = []string{core.DeliverableApproved, core.DeliverableSubmitted, core.DeliverableRejected, core.DeliverableMissing}
	paymentValues     = []string{core.PaymentPaid, core.PaymentOutstanding, core.PaymentOverdue}
)

// Normalizer maps raw records to entities. It is stateless and safe for
// concurrent use.
type Normalizer struct {
	schemas Schemas
}

func New(schemas Schemas) *Normalizer {
	return &Normalizer{schemas: schemas}
}

// Default returns a Normalizer using DefaultSchemas.
func Default() *Normalizer {
	return New(DefaultSchemas())
}

// Milestones maps records one to one. Missing fields take their defaults.
func (n *Normalizer) Milestones(recs []records.Record) []core.Milestone {
	s := n.schemas.Milestone
	out := make([]core.Milestone, 0, len(recs))
	for _, r := range recs {
		budget := amount(r, s.Names(AttrBudget))
		spend := amount(r, s.Names(AttrSpend))
		overBudget, ok := records.FirstBool(r, s.Names(AttrOverBudget)...)
		if !ok {
			overBudget = budget > 0 && spend > budget
		}
		out = append(out, core.Milestone{
			ID:              r.ID,
			URL:             r.URL,
			Title:           text(r, s.Names(AttrTitle), core.DefaultTitle),
			Phase:           text(r, s.Names(AttrPhase), core.DefaultGate),
			RiskStatus:      canonical(records.FirstText(r, s.Names(AttrRisk)...), riskValues, core.RiskOK),
			Progress:        Progress(r, s.Names(AttrProgress)),
			BudgetAllocated: budget,
			ActualSpend:     spend,
			Indicator:       text(r, s.Names(AttrIndicator), core.DefaultIndicator),
			OverBudget:      overBudget,
			StartDate:       records.FirstDate(r, s.Names(AttrStartDate)...),
			EndDate:         records.FirstDate(r, s.Names(AttrEndDate)...),
			Issue:           records.FirstText(r, s.Names(AttrIssue)...),
		})
	}
	return out
}

// Deliverables maps records one to one, resolving owners through owners.
// A nil owners table means DefaultOwnerAliases.
func (n *Normalizer) Deliverables(recs []records.Record, owners map[string]string) []core.Deliverable {
	if owners == nil {
		owners = DefaultOwnerAliases
	}
	s := n.schemas.Deliverable
	out := make([]core.Deliverable, 0, len(recs))
	for _, r := range recs {
		ownerList := resolveAll(records.FirstList(r, s.Names(AttrOwner)...), owners)
		assignees := resolveAll(records.FirstList(r, s.Names(AttrAssignees)...), owners)
		if len(assignees) == 0 && len(ownerList) > 0 {
			assignees = ownerList
		}
		owner := ""
		if len(ownerList) > 0 {
			owner = ownerList[0]
		}
		out = append(out, core.Deliverable{
			ID:            r.ID,
			URL:           r.URL,
			Title:         text(r, s.Names(AttrTitle), core.DefaultTitle),
			Gate:          text(r, s.Names(AttrGate), core.DefaultGate),
			Status:        canonical(records.FirstText(r, s.Names(AttrStatus)...), deliverableValues, core.DeliverableMissing),
			Owner:         owner,
			Assignees:     assignees,
			SubmittedDate: records.FirstDate(r, s.Names(AttrSubmitted)...),
			ApprovedDate:  records.FirstDate(r, s.Names(AttrApproved)...),
		})
	}
	return out
}

// Payments maps records one to one. Gate, Payable and BlockedReasons are
// left for the gate engine; BlockedReasons starts empty, never nil.
func (n *Normalizer) Payments(recs []records.Record) []core.Payment {
	s := n.schemas.Payment
	out := make([]core.Payment, 0, len(recs))
	for _, r := range recs {
		out = append(out, core.Payment{
			ID:             r.ID,
			URL:            r.URL,
			Title:          text(r, s.Names(AttrTitle), core.DefaultTitle),
			Vendor:         text(r, s.Names(AttrVendor), core.DefaultVendor),
			Amount:         amount(r, s.Names(AttrAmount)),
			Status:         canonical(records.FirstText(r, s.Names(AttrStatus)...), paymentValues, core.PaymentOutstanding),
			DueDate:        records.FirstDate(r, s.Names(AttrDueDate)...),
			PaidDate:       records.FirstDate(r, s.Names(AttrPaidDate)...),
			Gate:           core.DefaultGate,
			Payable:        true,
			BlockedReasons: []string{},
		})
	}
	return out
}

// Config flattens key/value records into a map. Blank keys are skipped and
// a later duplicate overrides an earlier one. When no record is keyed
// REQUIRED_BY_GATE, a property of that name on the first record is used.
func (n *Normalizer) Config(recs []records.Record) map[string]string {
	s := n.schemas.Config
	out := make(map[string]string, len(recs))
	for _, r := range recs {
		key := records.FirstText(r, s.Names(AttrKey)...)
		if key == "" {
			continue
		}
		out[key] = records.FirstText(r, s.Names(AttrValue)...)
	}
	if _, ok := out[KeyRequiredByGate]; !ok && len(recs) > 0 {
		if v := records.FirstText(recs[0], KeyRequiredByGate); v != "" {
			out[KeyRequiredByGate] = v
		}
	}
	return out
}

// Progress resolves a completion fraction. Raw values above 1 are read as
// percentages and divided by 100; the result is clamped to [0,1].
func Progress(r records.Record, names []string) float64 {
	raw, ok := records.FirstNumber(r, names...)
	if !ok {
		return 0
	}
	if raw > 1 {
		raw /= 100
	}
	switch {
	case raw < 0:
		return 0
	case raw > 1:
		return 1
	}
	return raw
}

// OwnerTable merges an OWNER_ALIASES override from config over the
// defaults. A malformed override returns the defaults and an error.
func OwnerTable(config map[string]string) (map[string]string, error) {
	table := make(map[string]string, len(DefaultOwnerAliases))
	for k, v := range DefaultOwnerAliases {
		table[k] = v
	}
	raw := strings.TrimSpace(config[KeyOwnerAliases])
	if raw == "" {
		return table, nil
	}
	var extra map[string]string
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		return table, fmt.Errorf("parse %s: %w", KeyOwnerAliases, err)
	}
	for k, v := range extra {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			table[k] = strings.TrimSpace(v)
		}
	}
	return table, nil
}

func text(r records.Record, names []string, def string) string {
	if s := records.FirstText(r, names...); s != "" {
		return s
	}
	return def
}

func amount(r records.Record, names []string) float64 {
	f, _ := records.FirstNumber(r, names...)
	return core.SanitizeAmount(f)
}

// canonical matches raw case-insensitively against known values. Unknown
// non-empty values pass through unchanged.
func canonical(raw string, known []string, def string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	for _, k := range known {
		if strings.EqualFold(raw, k) {
			return k
		}
	}
	return raw
}

func resolveAll(tokens []string, owners map[string]string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if name, ok := owners[strings.ToLower(t)]; ok {
			out = append(out, name)
			continue
		}
		out = append(out, t)
	}
	return out
}
