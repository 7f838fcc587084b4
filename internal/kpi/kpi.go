// Package kpi derives dashboard metrics from normalized entities. Every
// function is pure: the same entities and clock give the same result.
package kpi

import (
	"math"
	"sort"
	"strings"
	"time"

	"renohub/internal/core"
)

const (
	// KeyLaunchDate is matched case-insensitively against config keys.
	KeyLaunchDate = "Project Launch Date"
	// LaunchedDays is reported once the launch date has passed.
	LaunchedDays = 0

	WindowDays      = 30
	WindowItemLimit = 50
	ForecastMonths  = 4
)

// Clock pins "now" and the calendar used to cut days and months.
type Clock struct {
	Now      time.Time
	Location *time.Location
}

func (c Clock) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Today is the calendar date of Now in the clock's location.
func (c Clock) Today() core.Date {
	return core.DateIn(c.Now, c.loc())
}

// Compute returns the headline KPIs. GateApprovalRate is left for the gate
// engine to fill.
func Compute(milestones []core.Milestone, deliverables []core.Deliverable, payments []core.Payment, config map[string]string, clock Clock) core.Kpis {
	var budget, paid float64
	k := core.Kpis{DeliverablesTotal: len(deliverables)}
	for _, m := range milestones {
		budget += m.BudgetAllocated
		if m.RiskStatus == core.RiskAtRisk {
			k.MilestonesAtRisk++
		}
		if m.OverBudget {
			k.OverBudgetCount++
		}
	}
	for _, p := range payments {
		if p.IsPaid() {
			paid += p.Amount
		}
	}
	for _, d := range deliverables {
		if d.Status == core.DeliverableApproved {
			k.DeliverablesApproved++
		}
	}

	k.PaidVsBudget = core.Ratio(paid, budget)
	k.BudgetMYR = core.RoundCents(budget)
	k.PaidMYR = core.RoundCents(paid)
	k.RemainingMYR = core.RoundCents(budget - paid)
	k.DeliverablesProgress = core.Ratio(float64(k.DeliverablesApproved), float64(k.DeliverablesTotal))
	k.DaysToLaunch = DaysToLaunch(config, clock)
	k.Next30 = Next30(payments, clock.Today())
	k.Forecast = Forecast(payments, clock)
	return k
}

// DaysToLaunch returns whole days until the configured launch date,
// rounded up. Absent, unparsable or past dates give LaunchedDays.
func DaysToLaunch(config map[string]string, clock Clock) int {
	raw, ok := lookupFold(config, KeyLaunchDate)
	if !ok {
		return LaunchedDays
	}
	launch, ok := parseInstant(raw, clock.loc())
	if !ok {
		return LaunchedDays
	}
	days := math.Ceil(launch.Sub(clock.Now).Hours() / 24)
	if days <= 0 {
		return LaunchedDays
	}
	return int(days)
}

// Next30 collects unpaid payments due between today and today+30 days,
// both inclusive. Amount and Count cover the whole window; Items is
// capped at WindowItemLimit.
func Next30(payments []core.Payment, today core.Date) core.Window {
	due := Upcoming(payments, today)
	w := core.Window{Count: len(due)}
	for _, p := range due {
		w.Amount += p.Amount
	}
	w.Amount = core.RoundCents(w.Amount)
	if len(due) > WindowItemLimit {
		due = due[:WindowItemLimit]
	}
	w.Items = due
	return w
}

// Upcoming lists unpaid payments inside the 30-day window, earliest first.
func Upcoming(payments []core.Payment, today core.Date) []core.Payment {
	end := today.AddDays(WindowDays)
	return filterByDue(payments, func(d core.Date) bool {
		return !d.Before(today.Time) && !d.After(end.Time)
	})
}

// Overdue lists unpaid payments due before today, earliest first.
func Overdue(payments []core.Payment, today core.Date) []core.Payment {
	return filterByDue(payments, func(d core.Date) bool {
		return d.Before(today.Time)
	})
}

func filterByDue(payments []core.Payment, keep func(core.Date) bool) []core.Payment {
	out := make([]core.Payment, 0)
	for _, p := range payments {
		if p.IsPaid() || p.DueDate.IsEmpty() || !keep(p.DueDate) {
			continue
		}
		out = append(out, p)
	}
	sortByDue(out)
	return out
}

func sortByDue(ps []core.Payment) {
	sort.SliceStable(ps, func(i, j int) bool {
		if c := ps[i].DueDate.Compare(ps[j].DueDate.Time); c != 0 {
			return c < 0
		}
		return ps[i].ID < ps[j].ID
	})
}

// Forecast sums payments due in each of the next ForecastMonths calendar
// months, starting with the current one.
func Forecast(payments []core.Payment, clock Clock) []core.ForecastMonth {
	today := clock.Today()
	out := make([]core.ForecastMonth, ForecastMonths)
	index := make(map[string]int, ForecastMonths)
	for i := range out {
		start := time.Date(today.Year(), today.Month()+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		key := start.Format("2006-01")
		out[i] = core.ForecastMonth{Month: key, Label: start.Format("Jan 2006")}
		index[key] = i
	}
	for _, p := range payments {
		i, ok := index[p.DueDate.YearMonth()]
		if !ok {
			continue
		}
		out[i].TotalAmount += p.Amount
		out[i].PaymentCount++
	}
	for i := range out {
		out[i].TotalAmount = core.RoundCents(out[i].TotalAmount)
	}
	return out
}

// Cashflow buckets every payment twice: by due month into Scheduled and by
// paid month into Paid. Buckets are sorted by year-month.
func Cashflow(payments []core.Payment) []core.CashflowBucket {
	buckets := map[string]*core.CashflowBucket{}
	get := func(ym string) *core.CashflowBucket {
		b, ok := buckets[ym]
		if !ok {
			b = &core.CashflowBucket{YM: ym}
			buckets[ym] = b
		}
		return b
	}
	for _, p := range payments {
		if ym := p.DueDate.YearMonth(); ym != "" {
			get(ym).Scheduled += p.Amount
		}
		if ym := p.PaidDate.YearMonth(); ym != "" {
			get(ym).Paid += p.Amount
		}
	}
	out := make([]core.CashflowBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].YM < out[j].YM })
	return out
}

// Alerts assembles the attention lists shown above the dashboard tables.
func Alerts(milestones []core.Milestone, deliverables []core.Deliverable, payments []core.Payment, today core.Date) core.Alerts {
	a := core.Alerts{
		PaymentsOverdue:    Overdue(payments, today),
		PaymentsUpcoming:   Upcoming(payments, today),
		DeliverablesIssues: make([]core.Deliverable, 0),
		MilestonesRisk:     make([]core.Milestone, 0),
	}
	for _, d := range deliverables {
		if d.Status == core.DeliverableMissing || d.Status == core.DeliverableRejected {
			a.DeliverablesIssues = append(a.DeliverablesIssues, d)
		}
	}
	for _, m := range milestones {
		if m.RiskStatus == core.RiskAtRisk {
			a.MilestonesRisk = append(a.MilestonesRisk, m)
		}
	}
	return a
}

// lookupFold prefers an exact key, then the smallest key equal under case
// folding so the result does not depend on map order.
func lookupFold(config map[string]string, key string) (string, bool) {
	if v, ok := config[key]; ok {
		return v, true
	}
	var best string
	found := false
	for k := range config {
		if strings.EqualFold(strings.TrimSpace(k), key) && (!found || k < best) {
			best, found = k, true
		}
	}
	if !found {
		return "", false
	}
	return config[best], true
}

// parseInstant reads a timestamp as-is and a plain date as midnight in loc.
func parseInstant(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	d, ok := core.ParseDate(s)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc), true
}
