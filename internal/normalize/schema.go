// Package normalize maps raw records onto fixed-shape entities.
//
// Every logical attribute is looked up through an ordered alias list so
// legacy and current column names can coexist; the first match wins. New
// aliases are added to the Schema, never to the mapping code.
package normalize

type Attr string

const (
	AttrTitle      Attr = "title"
	AttrPhase      Attr = "phase"
	AttrRisk       Attr = "risk"
	AttrProgress   Attr = "progress"
	AttrBudget     Attr = "budget"
	AttrSpend      Attr = "spend"
	AttrIndicator  Attr = "indicator"
	AttrOverBudget Attr = "overBudget"
	AttrStartDate  Attr = "startDate"
	AttrEndDate    Attr = "endDate"
	AttrIssue      Attr = "issue"

	AttrGate      Attr = "gate"
	AttrStatus    Attr = "status"
	AttrOwner     Attr = "owner"
	AttrAssignees Attr = "assignees"
	AttrSubmitted Attr = "submitted"
	AttrApproved  Attr = "approved"

	AttrVendor   Attr = "vendor"
	AttrAmount   Attr = "amount"
	AttrDueDate  Attr = "dueDate"
	AttrPaidDate Attr = "paidDate"

	AttrKey   Attr = "key"
	AttrValue Attr = "value"
)

// Schema maps each attribute to its candidate property names, most
// preferred first.
type Schema map[Attr][]string

// Names returns the aliases for a, or nil.
func (s Schema) Names(a Attr) []string {
	return s[a]
}

// With returns a copy of s with extra aliases appended to a.
func (s Schema) With(a Attr, names ...string) Schema {
	out := make(Schema, len(s))
	for k, v := range s {
		out[k] = append([]string(nil), v...)
	}
	out[a] = append(out[a], names...)
	return out
}

// Schemas groups the alias tables of the four collections.
type Schemas struct {
	Milestone   Schema
	Deliverable Schema
	Payment     Schema
	Config      Schema
}

// DefaultSchemas returns the alias tables covering every historical column
// naming of the project workspace.
func DefaultSchemas() Schemas {
	return Schemas{
		Milestone: Schema{
			AttrTitle:      {"MilestoneTitle", "Milestone", "Name", "Title"},
			AttrPhase:      {"Phase", "Gate"},
			AttrRisk:       {"Risk_Status", "Risk Status", "Risk"},
			AttrProgress:   {"Progress", "Progress (%)", "% Complete"},
			AttrBudget:     {"Budget_Allocated", "Budget (RM)", "Subtotal (Formula)", "Budget"},
			AttrSpend:      {"Actual_Spend", "Actual Spend (RM)", "Actual (RM)", "Actual Spend"},
			AttrIndicator:  {"Indicator", "Indicator [PROD]", "Financial Indicator"},
			AttrOverBudget: {"Over Budget?", "Over Budget"},
			AttrStartDate:  {"StartDate", "Start Date", "Start"},
			AttrEndDate:    {"EndDate", "End Date", "Target Date", "Due Date"},
			AttrIssue:      {"Gate Issue", "Issue", "Blockers"},
		},
		Deliverable: Schema{
			AttrTitle:     {"Deliverable Name", "Deliverable", "Name", "Title"},
			AttrGate:      {"Gate", "Phase"},
			AttrStatus:    {"Status", "Approval Status"},
			AttrOwner:     {"Owner", "Responsible"},
			AttrAssignees: {"Assignee", "Assignees"},
			AttrSubmitted: {"Submitted_Date", "Submitted Date", "Submitted"},
			AttrApproved:  {"Approved_Date", "Approved Date", "Approved"},
		},
		Payment: Schema{
			AttrTitle:    {"Payment For", "Invoice #", "Payment", "Name", "Title", "Description"},
			AttrVendor:   {"Vendor", "Vendor/Payee", "Payee"},
			AttrAmount:   {"Amount (RM)", "Paid (MYR)", "Invoice Amount (Doc)", "Invoice Amount", "Amount"},
			AttrStatus:   {"Status", "Payment Status"},
			// A payment with no due date is scheduled on its paid date.
			AttrDueDate:  {"DueDate", "Due_Date", "Due Date", "Due", "Paid Date", "PaidDate"},
			AttrPaidDate: {"PaidDate", "Paid Date", "Payment Date"},
		},
		Config: Schema{
			AttrKey:   {"Key", "Name"},
			AttrValue: {"Value"},
		},
	}
}
