package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"renohub/internal/core"
)

func TestSummary(t *testing.T) {
	d := SummaryData{
		Kpis: core.Kpis{
			PaidVsBudget:         0.4237,
			DeliverablesProgress: 0.5,
			MilestonesAtRisk:     2,
			Next30:               core.Window{Amount: 12500, Count: 3},
		},
		Milestones: []core.Milestone{
			{Title: "Demolition", RiskStatus: core.RiskOK, Indicator: "🟢 OK"},
			{Title: "Wet works", RiskStatus: core.RiskAtRisk, Indicator: "🔴 Over"},
		},
	}
	got := Summary(d)
	for _, want := range []string{
		"Act as a renovation PM.",
		"- Paid vs Budget: 42.4%",
		"- Deliverables: 50% approved",
		"- Milestones At Risk: 2",
		"- Next 30d Due: RM 12,500 (3 items)",
		"- Wet works (Risk: At Risk, Financials: 🔴 Over)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestSummary_LimitsMilestones(t *testing.T) {
	var ms []core.Milestone
	for i := 0; i < 15; i++ {
		ms = append(ms, core.Milestone{Title: fmt.Sprintf("M%02d", i)})
	}
	got := Summary(SummaryData{Milestones: ms})
	if !strings.Contains(got, "- M09 ") || strings.Contains(got, "- M10 ") {
		t.Fatalf("expected exactly the first %d milestones:\n%s", SummaryMilestoneLimit, got)
	}
	if !strings.Contains(got, "- M00 (Risk: OK, Financials: 🟢 OK)") {
		t.Fatalf("blank fields should take defaults:\n%s", got)
	}
}

func TestSuggestion(t *testing.T) {
	got := Suggestion(SuggestionData{Title: "Wet works", Indicator: "🔴 Over", GateIssue: "Permit pending"})
	for _, want := range []string{
		`A milestone is "At Risk". Provide 3 concise actions.`,
		`Milestone: "Wet works"`,
		"Financial: 🔴 Over",
		`Issue: "Permit pending"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("suggestion missing %q:\n%s", want, got)
		}
	}
	if got := Suggestion(SuggestionData{Issue: "Late drawings"}); !strings.Contains(got, `Issue: "Late drawings"`) {
		t.Errorf("issue fallback not used:\n%s", got)
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		data    string
		want    string
		wantErr error
	}{
		{name: "summary", kind: "summary", data: `{"kpis":{"milestonesAtRisk":4},"milestones":[]}`, want: "Milestones At Risk: 4"},
		{name: "summary without data", kind: "summary", data: ``, want: "- (none)"},
		{name: "suggestion case insensitive", kind: "Suggestion", data: `{"title":"Roof"}`, want: `Milestone: "Roof"`},
		{name: "unknown kind", kind: "haiku", data: `{}`, wantErr: ErrUnknownKind},
		{name: "bad data", kind: "summary", data: `{"kpis": "nope"}`, wantErr: ErrInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.kind, json.RawMessage(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Build() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Build() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestBuild_IsPure(t *testing.T) {
	data := json.RawMessage(`{"kpis":{"paidVsBudget":0.1},"milestones":[{"title":"A"}]}`)
	a, _ := Build(KindSummary, data)
	b, _ := Build(KindSummary, data)
	if a != b {
		t.Fatal("same input must render the same prompt")
	}
}

func TestFormatRinggit(t *testing.T) {
	cases := map[float64]string{
		0:       "0",
		950:     "950",
		1234567: "1,234,567",
		1234.5:  "1,234.50",
		99.999:  "100.00",
	}
	for in, want := range cases {
		if got := FormatRinggit(in); got != want {
			t.Errorf("FormatRinggit(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFromSnapshot(t *testing.T) {
	s := core.Snapshot{Kpis: core.Kpis{MilestonesAtRisk: 1}, Milestones: []core.Milestone{{Title: "X"}}}
	d := FromSnapshot(s)
	if d.Kpis.MilestonesAtRisk != 1 || len(d.Milestones) != 1 {
		t.Fatalf("FromSnapshot() = %+v", d)
	}
}
