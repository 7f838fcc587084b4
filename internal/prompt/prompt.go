// Package prompt renders the fixed text-generation prompts from snapshot
// fragments. It performs no I/O.
package prompt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"renohub/internal/core"
)

type Kind string

const (
	KindSummary    Kind = "summary"
	KindSuggestion Kind = "suggestion"

	// SummaryMilestoneLimit caps the milestones listed in a summary prompt.
	SummaryMilestoneLimit = 10
)

var (
	ErrUnknownKind = errors.New("invalid request type")
	ErrInvalidData = errors.New("invalid prompt data")
)

var ringgit = message.NewPrinter(language.MustParse("en-MY"))

// Request is the body of a prompt request.
type Request struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SummaryData is the snapshot fragment a summary needs.
type SummaryData struct {
	Kpis       core.Kpis        `json:"kpis"`
	Milestones []core.Milestone `json:"milestones"`
}

// SuggestionData describes the at-risk milestone to get actions for.
type SuggestionData struct {
	Title     string `json:"title"`
	Indicator string `json:"indicator"`
	Issue     string `json:"issue"`
	GateIssue string `json:"gateIssue"`
}

// ParseKind validates a prompt type.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSummary, KindSuggestion:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Build decodes data for kind and renders its prompt.
func Build(kind Kind, data json.RawMessage) (string, error) {
	kind, err := ParseKind(string(kind))
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = json.RawMessage("null")
	}
	switch kind {
	case KindSummary:
		var d SummaryData
		if err := json.Unmarshal(data, &d); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		return Summary(d), nil
	default:
		var d SuggestionData
		if err := json.Unmarshal(data, &d); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		return Suggestion(d), nil
	}
}

// FromSnapshot extracts the summary fragment of a snapshot.
func FromSnapshot(s core.Snapshot) SummaryData {
	return SummaryData{Kpis: s.Kpis, Milestones: s.Milestones}
}

// Summary renders the weekly-update prompt.
func Summary(d SummaryData) string {
	k := d.Kpis
	var b strings.Builder
	b.WriteString("Act as a renovation PM. Based on the live data, write a concise weekly update with Wins, Risks, and Next Actions.\n\n")
	b.WriteString("Key Metrics:\n")
	fmt.Fprintf(&b, "- Paid vs Budget: %.1f%%\n", k.PaidVsBudget*100)
	fmt.Fprintf(&b, "- Deliverables: %.0f%% approved\n", k.DeliverablesProgress*100)
	fmt.Fprintf(&b, "- Milestones At Risk: %d\n", k.MilestonesAtRisk)
	fmt.Fprintf(&b, "- Next 30d Due: RM %s (%d items)\n", FormatRinggit(k.Next30.Amount), k.Next30.Count)

	b.WriteString("\nKey Milestones:\n")
	ms := d.Milestones
	if len(ms) > SummaryMilestoneLimit {
		ms = ms[:SummaryMilestoneLimit]
	}
	if len(ms) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, m := range ms {
		fmt.Fprintf(&b, "- %s (Risk: %s, Financials: %s)\n",
			or(m.Title, core.DefaultTitle), or(m.RiskStatus, core.RiskOK), or(m.Indicator, core.DefaultIndicator))
	}
	return b.String()
}

// Suggestion renders the three-actions prompt for one milestone.
func Suggestion(d SuggestionData) string {
	issue := or(d.GateIssue, d.Issue)
	return fmt.Sprintf("Act as a senior construction PM. A milestone is \"At Risk\". Provide 3 concise actions.\n\n"+
		"Milestone: \"%s\"\nFinancial: %s\nIssue: \"%s\"\n",
		or(d.Title, core.DefaultTitle), or(d.Indicator, core.DefaultIndicator), or(issue, "Not specified"))
}

// FormatRinggit groups thousands and keeps at most two decimals.
func FormatRinggit(amount float64) string {
	if amount == float64(int64(amount)) {
		return ringgit.Sprintf("%d", int64(amount))
	}
	return ringgit.Sprintf("%.2f", amount)
}

func or(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
