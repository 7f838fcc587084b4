package records

import (
	"math"
	"strconv"
	"strings"

	"renohub/internal/core"
)

// Value is the decoded scalar view of a property. Text, Number, Bool and
// List are filled according to Kind; an absent property yields the zero
// Value with Present false.
type Value struct {
	Kind    Kind
	Present bool
	Text    string
	Number  *float64
	Bool    *bool
	List    []string
}

// IsNull reports whether the value carries nothing usable.
func (v Value) IsNull() bool {
	return v.Text == "" && v.Number == nil && v.Bool == nil && len(v.List) == 0
}

// String renders the value as text. Numbers are formatted without
// trailing zeros and lists are joined with ", ".
func (v Value) String() string {
	switch {
	case v.Text != "":
		return v.Text
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	case v.Bool != nil:
		return strconv.FormatBool(*v.Bool)
	case len(v.List) > 0:
		return strings.Join(v.List, ", ")
	}
	return ""
}

// Float returns the numeric value, parsing display strings as a fallback.
func (v Value) Float() (float64, bool) {
	if v.Number != nil {
		return *v.Number, true
	}
	if v.Text != "" {
		return core.ParseAmount(v.Text)
	}
	return 0, false
}

// Truthy interprets booleans, non-zero numbers and non-empty text other
// than "false", "no" and "0" as true.
func (v Value) Truthy() bool {
	switch {
	case v.Bool != nil:
		return *v.Bool
	case v.Number != nil:
		return *v.Number != 0
	}
	switch strings.ToLower(strings.TrimSpace(v.Text)) {
	case "", "false", "no", "0":
		return false
	}
	return true
}

// Extract returns the decoded value of the first candidate name present on
// the record. It never panics; a missing or malformed property decodes to
// the empty Value.
func Extract(rec Record, names ...string) Value {
	for _, name := range names {
		if p, ok := rec.Properties[name]; ok {
			return decode(p)
		}
	}
	return Value{}
}

func decode(p Property) Value {
	v := Value{Kind: p.Kind, Present: true}
	switch p.Kind {
	case KindTitle:
		v.Text = firstRun(p.Title)
	case KindRichText:
		v.Text = firstRun(p.RichText)
	case KindNumber:
		v.Number = finite(p.Number)
	case KindSelect:
		if p.Select != nil {
			v.Text = strings.TrimSpace(p.Select.Name)
		}
	case KindStatus:
		if p.Status != nil {
			v.Text = strings.TrimSpace(p.Status.Name)
		}
	case KindMultiSelect:
		v.List = optionNames(p.MultiSelect)
	case KindDate:
		if p.Date != nil {
			v.Text = strings.TrimSpace(p.Date.Start)
		}
	case KindFormula:
		decodeFormula(p.Formula, &v)
	case KindRelation:
		v.List = make([]string, 0, len(p.Relation))
		for _, r := range p.Relation {
			if r.ID != "" {
				v.List = append(v.List, r.ID)
			}
		}
	case KindPeople:
		v.List = make([]string, 0, len(p.People))
		for _, person := range p.People {
			name := strings.TrimSpace(person.Name)
			if name == "" {
				name = person.ID
			}
			if name != "" {
				v.List = append(v.List, name)
			}
		}
	default:
		return Value{Kind: p.Kind}
	}
	return v
}

func decodeFormula(f *Formula, v *Value) {
	if f == nil {
		return
	}
	switch f.Type {
	case "number":
		v.Number = finite(f.Number)
	case "string":
		if f.String != nil {
			v.Text = strings.TrimSpace(*f.String)
		}
	case "boolean":
		if f.Boolean != nil {
			b := *f.Boolean
			v.Bool = &b
			v.Text = strconv.FormatBool(b)
		}
	case "date":
		if f.Date != nil {
			v.Text = strings.TrimSpace(f.Date.Start)
		}
	}
}

func firstRun(runs []TextRun) string {
	if len(runs) == 0 {
		return ""
	}
	return strings.TrimSpace(runs[0].PlainText)
}

func optionNames(opts []Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		if n := strings.TrimSpace(o.Name); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func finite(f *float64) *float64 {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	n := *f
	return &n
}

// FirstText returns the first non-empty textual rendering among names.
func FirstText(rec Record, names ...string) string {
	for _, name := range names {
		if s := Extract(rec, name).String(); s != "" {
			return s
		}
	}
	return ""
}

// FirstNumber returns the first candidate that decodes to a usable number.
func FirstNumber(rec Record, names ...string) (float64, bool) {
	for _, name := range names {
		if f, ok := Extract(rec, name).Float(); ok {
			return f, true
		}
	}
	return 0, false
}

// FirstDate returns the first candidate that parses as a calendar date.
func FirstDate(rec Record, names ...string) core.Date {
	for _, name := range names {
		if d, ok := core.ParseDate(Extract(rec, name).Text); ok {
			return d
		}
	}
	return core.Date{}
}

// FirstList returns the first non-empty list. Plain text values count as a
// single-element list. The result is never nil.
func FirstList(rec Record, names ...string) []string {
	for _, name := range names {
		v := Extract(rec, name)
		if len(v.List) > 0 {
			return append([]string(nil), v.List...)
		}
		if v.Text != "" {
			return []string{v.Text}
		}
	}
	return []string{}
}

// FirstBool returns the truthiness of the first present, non-null candidate.
func FirstBool(rec Record, names ...string) (bool, bool) {
	for _, name := range names {
		v := Extract(rec, name)
		if v.Present && !v.IsNull() {
			return v.Truthy(), true
		}
	}
	return false, false
}
