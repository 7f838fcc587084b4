package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"renohub/internal/cache"
	"renohub/internal/core"
	"renohub/internal/kpi"
	"renohub/internal/prompt"
	"renohub/internal/records"
	"renohub/internal/vendors"
)

var june1 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func rec(id string, props map[string]records.Property) records.Record {
	return records.Record{ID: id, URL: "https://example.test/" + id, Properties: props}
}

func configRec(key, value string) records.Record {
	return rec("cfg-"+key, map[string]records.Property{
		"Key":   records.Title(key),
		"Value": records.Text(value),
	})
}

func fixture() Raw {
	return Raw{
		Milestones: []records.Record{
			rec("m1", map[string]records.Property{
				"Milestone":   records.Title("Demolition"),
				"Phase":       records.Select("G2"),
				"Risk Status": records.Select("OK"),
				"Progress":    records.Number(100),
				"Budget (RM)": records.Number(10000),
			}),
			rec("m2", map[string]records.Property{
				"Milestone":    records.Title("Wet works"),
				"Phase":        records.Select("G3"),
				"Risk Status":  records.Select("At Risk"),
				"Progress (%)": records.FormulaNumber(0.4),
			}),
		},
		Deliverables: []records.Record{
			rec("d1", map[string]records.Property{
				"Deliverable": records.Title("Floor Plan"),
				"Gate":        records.Select("G2"),
				"Status":      records.Status("Approved"),
				"Owner":       records.People("solomon"),
			}),
		},
		Payments: []records.Record{
			rec("p1", map[string]records.Property{
				"Payment":     records.Title("Tranche 1"),
				"Vendor":      records.Select("Build Co"),
				"Amount (RM)": records.Number(1000),
				"Status":      records.Select("Outstanding"),
				"Due Date":    records.Date("2024-06-15"),
			}),
			rec("p2", map[string]records.Property{
				"Payment":     records.Title("Permit fee"),
				"Vendor":      records.Select("City Council"),
				"Amount (RM)": records.Number(250),
				"Status":      records.Select("Paid"),
				"Due Date":    records.Date("2024-05-10"),
				"Paid Date":   records.Date("2024-05-12"),
			}),
			rec("p3", map[string]records.Property{
				"Payment":    records.Title("Old invoice"),
				"Paid (MYR)": records.Number(400),
				"Due Date":   records.Date("2024-05-20"),
			}),
		},
		Config: []records.Record{
			configRec("REQUIRED_BY_GATE", `{"G2": ["Floor Plan"], "G3": ["Construction Drawing"]}`),
			configRec("Project Launch Date", "2024-06-11"),
		},
	}
}

func build(raw Raw) core.Snapshot {
	return Build(raw, kpi.Clock{Now: june1}, BuildOptions{})
}

func TestBuild_UpcomingPayment(t *testing.T) {
	s := build(fixture())

	if s.Kpis.Next30.Count != 1 || s.Kpis.Next30.Items[0].ID != "p1" || s.Kpis.Next30.Amount != 1000 {
		t.Fatalf("next30 = %+v", s.Kpis.Next30)
	}
	if len(s.Alerts.PaymentsUpcoming) != 1 || s.Alerts.PaymentsUpcoming[0].ID != "p1" {
		t.Fatalf("upcoming = %+v", s.Alerts.PaymentsUpcoming)
	}
	for _, p := range s.Alerts.PaymentsOverdue {
		if p.ID == "p1" {
			t.Fatal("p1 must not be overdue")
		}
	}
	if len(s.Alerts.PaymentsOverdue) != 1 || s.Alerts.PaymentsOverdue[0].ID != "p3" {
		t.Fatalf("overdue = %+v", s.Alerts.PaymentsOverdue)
	}
}

func TestBuild_Gates(t *testing.T) {
	s := build(fixture())

	byID := map[string]core.Gate{}
	for _, g := range s.Gates {
		byID[g.ID] = g
	}
	if !byID["G2"].CompleteStrict || byID["G2"].MilestonesComplete != 1 {
		t.Fatalf("G2 = %+v", byID["G2"])
	}
	if byID["G3"].CompleteStrict {
		t.Fatalf("G3 should not be complete: %+v", byID["G3"])
	}

	payments := map[string]core.Payment{}
	for _, p := range s.Payments {
		payments[p.ID] = p
	}
	if p := payments["p1"]; p.Gate != "G3" || p.Payable || !strings.Contains(strings.Join(p.BlockedReasons, " "), "G3") {
		t.Fatalf("tranche should be blocked by G3: %+v", p)
	}
	if p := payments["p2"]; p.Gate != "G2" || !p.Payable {
		t.Fatalf("permit fee should be payable: %+v", p)
	}
	if p := payments["p3"]; p.Gate != core.DefaultGate || !p.Payable {
		t.Fatalf("uncategorized payment should never be blocked: %+v", p)
	}
	if s.Kpis.GateApprovalRate != 1 {
		t.Errorf("gateApprovalRate = %v", s.Kpis.GateApprovalRate)
	}
}

func TestBuild_RejectedDeliverableBlocksGate(t *testing.T) {
	raw := fixture()
	raw.Deliverables[0].Properties["Status"] = records.Status("Rejected")
	raw.Payments = append(raw.Payments, rec("p4", map[string]records.Property{
		"Payment": records.Title("Authority submission"),
	}))
	s := build(raw)

	for _, g := range s.Gates {
		if g.ID == "G2" && g.CompleteStrict {
			t.Fatal("G2 must not be complete with a rejected floor plan")
		}
	}
	for _, p := range s.Payments {
		if p.ID == "p4" && (p.Payable || !strings.Contains(p.BlockedReasons[0], "G2")) {
			t.Fatalf("G2 payment should be blocked: %+v", p)
		}
	}
	if len(s.Alerts.DeliverablesIssues) != 1 {
		t.Errorf("rejected deliverable should raise an issue")
	}
}

func TestBuild_KPIs(t *testing.T) {
	s := build(fixture())
	k := s.Kpis

	if k.BudgetMYR != 10000 {
		t.Errorf("milestone without budget should contribute 0, budget = %v", k.BudgetMYR)
	}
	if k.PaidMYR != 250 || k.RemainingMYR != 9750 || k.PaidVsBudget != 0.025 {
		t.Errorf("paid = %v remaining = %v ratio = %v", k.PaidMYR, k.RemainingMYR, k.PaidVsBudget)
	}
	if k.MilestonesAtRisk != 1 || len(s.Alerts.MilestonesRisk) != 1 {
		t.Errorf("at risk = %d", k.MilestonesAtRisk)
	}
	if k.DaysToLaunch != 10 {
		t.Errorf("daysToLaunch = %d, want 10", k.DaysToLaunch)
	}
	if k.DeliverablesProgress != 1 {
		t.Errorf("deliverablesProgress = %v", k.DeliverablesProgress)
	}
	if s.Milestones[1].Progress != 0.4 {
		t.Errorf("fraction progress should be kept, got %v", s.Milestones[1].Progress)
	}
	if s.Deliverables[0].Owner != "Solomon" {
		t.Errorf("owner alias not resolved: %q", s.Deliverables[0].Owner)
	}
}

func TestBuild_BadLaunchDateAndNoDeliverables(t *testing.T) {
	raw := fixture()
	raw.Deliverables = nil
	raw.Config = []records.Record{configRec("Project Launch Date", "not-a-date")}
	s := build(raw)
	if s.Kpis.DaysToLaunch != 0 {
		t.Errorf("daysToLaunch = %d", s.Kpis.DaysToLaunch)
	}
	if s.Kpis.DeliverablesProgress != 0 {
		t.Errorf("deliverablesProgress = %v", s.Kpis.DeliverablesProgress)
	}
}

func TestBuild_CashflowConservation(t *testing.T) {
	s := build(fixture())
	var scheduled, paid float64
	for _, b := range s.Cashflow {
		scheduled += b.Scheduled
		paid += b.Paid
	}
	if scheduled != 1650 || paid != 250 {
		t.Fatalf("scheduled = %v paid = %v", scheduled, paid)
	}
}

func TestBuild_TopVendors(t *testing.T) {
	s := build(fixture())
	if len(s.TopVendors) != 2 || s.TopVendors[0].Vendor != "Build Co" || s.TopVendors[1].Vendor != core.DefaultVendor {
		t.Fatalf("topVendors = %+v", s.TopVendors)
	}
	if s.TopVendors[0].Trade != vendors.TradePlaceholder {
		t.Errorf("unenriched trade = %q", s.TopVendors[0].Trade)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	a, err := json.Marshal(build(fixture()))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(build(fixture()))
	if string(a) != string(b) {
		t.Fatal("same input and clock must give byte-identical snapshots")
	}
}

func TestBuild_EmptyInputKeepsEveryKey(t *testing.T) {
	b, err := json.Marshal(build(Raw{}))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"milestones", "deliverables", "payments", "config", "kpis", "gates", "topVendors", "cashflow", "alerts"} {
		v, ok := doc[key]
		if !ok || string(v) == "null" {
			t.Errorf("key %q missing or null: %s", key, v)
		}
	}
	var alerts map[string]json.RawMessage
	_ = json.Unmarshal(doc["alerts"], &alerts)
	for k, v := range alerts {
		if string(v) == "null" {
			t.Errorf("alerts.%s is null", k)
		}
	}
}

type fakeStore struct {
	mu    sync.Mutex
	data  map[string][]records.Record
	fail  map[string]error
	calls []string
}

func (f *fakeStore) FetchAll(ctx context.Context, id string, q records.Query) ([]records.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records.Apply(f.data[id], q), nil
}

func newFakeStore() *fakeStore {
	raw := fixture()
	return &fakeStore{data: map[string][]records.Record{
		"ms":  raw.Milestones,
		"dl":  raw.Deliverables,
		"pay": raw.Payments,
		"cfg": raw.Config,
		"registry": {
			rec("v1", map[string]records.Property{
				vendors.NameProperty:  records.Title("Build Co"),
				vendors.TradeProperty: records.Select("Main Contractor"),
			}),
		},
	}}
}

func testOptions() Options {
	return Options{
		Collections: Collections{Milestones: "ms", Deliverables: "dl", Payments: "pay", Config: "cfg"},
		VendorMode:  vendors.ModeOutstanding,
		Now:         func() time.Time { return june1 },
	}
}

func TestService_Snapshot(t *testing.T) {
	store := newFakeStore()
	enricher := vendors.NewEnricher(vendors.NewRecordDirectory(store, "registry"), cache.NewLRUCache[string](8, time.Minute), nil)
	svc := NewService(store, enricher, nil, testOptions(), nil)

	s, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s.TopVendors[0].Trade != "Main Contractor" {
		t.Errorf("trade = %q", s.TopVendors[0].Trade)
	}
	if !s.GeneratedAt.Equal(june1) {
		t.Errorf("generatedAt = %v", s.GeneratedAt)
	}
	want := build(fixture())
	if len(s.Payments) != len(want.Payments) || s.Kpis.Next30.Count != want.Kpis.Next30.Count {
		t.Errorf("service snapshot differs from Build")
	}
}

func TestService_SnapshotMissingConfiguration(t *testing.T) {
	store := newFakeStore()
	opts := testOptions()
	opts.Missing = []string{"NOTION_API_KEY", "PAYMENTS_DB_ID"}
	_, err := NewService(store, nil, nil, opts, nil).Snapshot(context.Background())

	f := core.AsFailure(err)
	if f.Kind != core.FailureConfiguration || len(f.Missing) != 2 {
		t.Fatalf("failure = %+v", f)
	}
	if len(store.calls) != 0 {
		t.Fatalf("no fetch may happen before the configuration check, calls = %v", store.calls)
	}
}

func TestService_SnapshotAllOrNothing(t *testing.T) {
	store := newFakeStore()
	store.fail = map[string]error{"pay": core.Upstream("Notion", 503, "unavailable", nil)}
	s, err := NewService(store, nil, nil, testOptions(), nil).Snapshot(context.Background())

	f := core.AsFailure(err)
	if f.Kind != core.FailureUpstream || f.Status != 503 {
		t.Fatalf("failure = %+v", f)
	}
	if s.Milestones != nil || s.Payments != nil {
		t.Fatal("no partial snapshot may be returned")
	}
}

func TestService_SnapshotOrdersMilestonesByStartDate(t *testing.T) {
	store := newFakeStore()
	store.data["ms"] = []records.Record{
		rec("late", map[string]records.Property{"StartDate": records.Date("2024-09-01")}),
		rec("undated", nil),
		rec("early", map[string]records.Property{"StartDate": records.Date("2024-02-01")}),
	}
	opts := testOptions()
	opts.MilestoneSorts = []records.Sort{{Property: "StartDate", Direction: records.Ascending}}

	s, err := NewService(store, nil, nil, opts, nil).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	var got []string
	for _, m := range s.Milestones {
		got = append(got, m.ID)
	}
	if strings.Join(got, ",") != "early,late,undated" {
		t.Fatalf("milestone order = %v", got)
	}
	if s.Milestones[0].StartDate.String() != "2024-02-01" {
		t.Errorf("startDate = %v", s.Milestones[0].StartDate)
	}
}

func TestBuild_LegacyWorkspaceColumns(t *testing.T) {
	raw := Raw{
		Milestones: []records.Record{
			rec("m1", map[string]records.Property{
				"MilestoneTitle":   records.Title("Authority submission"),
				"Phase":            records.Select("G2"),
				"Risk_Status":      records.Status("At Risk"),
				"Budget_Allocated": records.Number(5000),
			}),
		},
		Deliverables: []records.Record{
			rec("d1", map[string]records.Property{
				"Deliverable Name": records.Title("Floor Plan"),
				"Gate":             records.Select("G2"),
				"Status":           records.Select("Rejected"),
			}),
		},
		Payments: []records.Record{
			rec("p1", map[string]records.Property{
				"Payment For": records.Title("Building permit fee"),
				"Amount (RM)": records.Number(1000),
				"Status":      records.Select("Outstanding"),
				"DueDate":     records.Date("2024-06-15"),
			}),
		},
		Config: []records.Record{configRec("REQUIRED_BY_GATE", `{"G2": ["Floor Plan"]}`)},
	}
	s := build(raw)

	p := s.Payments[0]
	if p.Title != "Building permit fee" || p.Gate != "G2" || p.Payable || p.DueDate.String() != "2024-06-15" {
		t.Fatalf("payment = %+v", p)
	}
	if s.Kpis.Next30.Count != 1 {
		t.Errorf("next30 = %+v", s.Kpis.Next30)
	}
	if s.Deliverables[0].Title != "Floor Plan" {
		t.Errorf("deliverable title = %q", s.Deliverables[0].Title)
	}
	if m := s.Milestones[0]; m.RiskStatus != core.RiskAtRisk || m.BudgetAllocated != 5000 || m.Title != "Authority submission" {
		t.Errorf("milestone = %+v", m)
	}
}

type fakeGenerator struct {
	prompt string
	text   string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, p string) (string, error) {
	f.prompt = p
	return f.text, f.err
}

func TestService_Summarize(t *testing.T) {
	gen := &fakeGenerator{text: "Wins: demolition done."}
	svc := NewService(newFakeStore(), nil, gen, testOptions(), nil)

	out, err := svc.Summarize(context.Background(), prompt.Request{
		Type: prompt.KindSummary,
		Data: json.RawMessage(`{"kpis":{"milestonesAtRisk":3},"milestones":[{"title":"Roof"}]}`),
	})
	if err != nil || out != gen.text {
		t.Fatalf("Summarize() = %q, %v", out, err)
	}
	if !strings.Contains(gen.prompt, "Milestones At Risk: 3") || !strings.Contains(gen.prompt, "- Roof") {
		t.Fatalf("prompt = %s", gen.prompt)
	}

	_, err = svc.Summarize(context.Background(), prompt.Request{Type: "poem"})
	if f := core.AsFailure(err); f.Kind != core.FailureBadRequest {
		t.Fatalf("unknown type should be a bad request, got %v", err)
	}

	gen.err = core.Upstream("gemini", 500, "boom", nil)
	_, err = svc.Summarize(context.Background(), prompt.Request{Type: prompt.KindSuggestion, Data: json.RawMessage(`{}`)})
	if f := core.AsFailure(err); f.Kind != core.FailureUpstream {
		t.Fatalf("generator failure should propagate, got %v", err)
	}
}

func TestService_SummarizeUnconfigured(t *testing.T) {
	svc := NewService(newFakeStore(), nil, nil, testOptions(), nil)
	_, err := svc.Summarize(context.Background(), prompt.Request{Type: prompt.KindSummary})
	var f *core.Failure
	if !errors.As(err, &f) || f.Kind != core.FailureConfiguration {
		t.Fatalf("expected configuration failure, got %v", err)
	}
}
