package core

import "time"

// Kpis holds the headline dashboard figures.
type Kpis struct {
	PaidVsBudget         float64         `json:"paidVsBudget"`
	BudgetMYR            float64         `json:"budgetMYR"`
	PaidMYR              float64         `json:"paidMYR"`
	RemainingMYR         float64         `json:"remainingMYR"`
	DeliverablesProgress float64         `json:"deliverablesProgress"`
	DeliverablesApproved int             `json:"deliverablesApproved"`
	DeliverablesTotal    int             `json:"deliverablesTotal"`
	MilestonesAtRisk     int             `json:"milestonesAtRisk"`
	OverBudgetCount      int             `json:"overBudgetCount"`
	DaysToLaunch         int             `json:"daysToLaunch"`
	GateApprovalRate     float64         `json:"gateApprovalRate"`
	Next30               Window          `json:"next30"`
	Forecast             []ForecastMonth `json:"forecast"`
}

// Window is the set of unpaid payments due within a date range.
type Window struct {
	Amount float64   `json:"amount"`
	Count  int       `json:"count"`
	Items  []Payment `json:"items"`
}

// ForecastMonth sums payments due in one calendar month.
type ForecastMonth struct {
	Month        string  `json:"month"`
	Label        string  `json:"label"`
	TotalAmount  float64 `json:"totalAmount"`
	PaymentCount int     `json:"paymentCount"`
}

// CashflowBucket compares scheduled and settled amounts for a year-month.
type CashflowBucket struct {
	YM        string  `json:"ym"`
	Scheduled float64 `json:"scheduled"`
	Paid      float64 `json:"paid"`
}

// Gate is the derived state of one project-phase checkpoint.
type Gate struct {
	ID                 string   `json:"id"`
	Required           int      `json:"required"`
	Approved           int      `json:"approved"`
	Blocked            int      `json:"blocked"`
	MilestonesComplete int      `json:"milestonesComplete"`
	GateApprovalRate   float64  `json:"gateApprovalRate"`
	CompleteStrict     bool     `json:"completeStrict"`
	RequiredTitles     []string `json:"requiredTitles"`
	MissingTitles      []string `json:"missingTitles"`
}

// VendorExposure is one row of the top-vendors table.
type VendorExposure struct {
	Vendor string  `json:"vendor"`
	Amount float64 `json:"amount"`
	Trade  string  `json:"trade"`
}

type Alerts struct {
	PaymentsOverdue    []Payment     `json:"paymentsOverdue"`
	PaymentsUpcoming   []Payment     `json:"paymentsUpcoming"`
	DeliverablesIssues []Deliverable `json:"deliverablesIssues"`
	MilestonesRisk     []Milestone   `json:"milestonesRisk"`
}

// Snapshot is the full document produced by one aggregation run.
type Snapshot struct {
	Milestones   []Milestone       `json:"milestones"`
	Deliverables []Deliverable     `json:"deliverables"`
	Payments     []Payment         `json:"payments"`
	Config       map[string]string `json:"config"`
	Kpis         Kpis              `json:"kpis"`
	Gates        []Gate            `json:"gates"`
	TopVendors   []VendorExposure  `json:"topVendors"`
	Cashflow     []CashflowBucket  `json:"cashflow"`
	Alerts       Alerts            `json:"alerts"`
	GeneratedAt  time.Time         `json:"generatedAt"`
}
