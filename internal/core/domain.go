package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const (
	RiskOK     = "OK"
	RiskAtRisk = "At Risk"

	DeliverableApproved  = "Approved"
	DeliverableSubmitted = "Submitted"
	DeliverableRejected  = "Rejected"
	DeliverableMissing   = "Missing"

	PaymentPaid        = "Paid"
	PaymentOutstanding = "Outstanding"
	PaymentOverdue     = "Overdue"

	DefaultTitle     = "Untitled"
	DefaultGate      = "Uncategorized"
	DefaultVendor    = "Unknown"
	DefaultIndicator = "🟢 OK"
)

const dateLayout = "2006-01-02"

type (
	// Date is a calendar date. The zero value is "no date" and encodes as null.
	Date struct {
		time.Time
	}

	Milestone struct {
		ID              string  `json:"id"`
		URL             string  `json:"url"`
		Title           string  `json:"title"`
		Phase           string  `json:"phase"`
		RiskStatus      string  `json:"riskStatus"`
		Progress        float64 `json:"progress"`
		BudgetAllocated float64 `json:"budgetAllocated"`
		ActualSpend     float64 `json:"actualSpend"`
		Indicator       string  `json:"indicator"`
		OverBudget      bool    `json:"overBudget"`
		StartDate       Date    `json:"startDate"`
		EndDate         Date    `json:"endDate"`
		Issue           string  `json:"issue"`
	}

	Deliverable struct {
		ID            string   `json:"id"`
		URL           string   `json:"url"`
		Title         string   `json:"title"`
		Gate          string   `json:"gate"`
		Status        string   `json:"status"`
		Owner         string   `json:"owner"`
		Assignees     []string `json:"assignees"`
		SubmittedDate Date     `json:"submittedDate"`
		ApprovedDate  Date     `json:"approvedDate"`
	}

	Payment struct {
		ID             string   `json:"id"`
		URL            string   `json:"url"`
		Title          string   `json:"title"`
		Vendor         string   `json:"vendor"`
		Amount         float64  `json:"amount"`
		Status         string   `json:"status"`
		DueDate        Date     `json:"dueDate"`
		PaidDate       Date     `json:"paidDate"`
		Gate           string   `json:"gate"`
		Payable        bool     `json:"payable"`
		BlockedReasons []string `json:"blockedReasons"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts a plain ISO date or an RFC 3339 timestamp. Only the
// calendar part of a timestamp is kept.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, true
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), true
		}
	}
	return Date{}, false
}

// DateIn returns the calendar date of t as observed in loc.
func DateIn(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// YearMonth returns the "2006-01" bucket key, or "" for an empty date.
func (d Date) YearMonth() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01")
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, _ := ParseDate(s)
	*d = parsed
	return nil
}

// IsPaid reports whether the payment has been settled.
func (p Payment) IsPaid() bool {
	return p.Status == PaymentPaid
}
