// Package records defines the raw record shape shared by every record store
// and the field extractor that turns typed properties into scalar values.
package records

// Kind is the declared type of a property.
type Kind string

const (
	KindTitle       Kind = "title"
	KindRichText    Kind = "rich_text"
	KindNumber      Kind = "number"
	KindSelect      Kind = "select"
	KindStatus      Kind = "status"
	KindMultiSelect Kind = "multi_select"
	KindDate        Kind = "date"
	KindFormula     Kind = "formula"
	KindRelation    Kind = "relation"
	KindPeople      Kind = "people"
)

type (
	TextRun struct {
		PlainText string `json:"plain_text"`
	}

	Option struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name"`
	}

	DateRange struct {
		Start string  `json:"start"`
		End   *string `json:"end,omitempty"`
	}

	// Formula holds the resolved value of a computed property. Type names
	// which of the payload fields is set.
	Formula struct {
		Type    string     `json:"type"`
		Number  *float64   `json:"number,omitempty"`
		String  *string    `json:"string,omitempty"`
		Boolean *bool      `json:"boolean,omitempty"`
		Date    *DateRange `json:"date,omitempty"`
	}

	Reference struct {
		ID string `json:"id"`
	}

	Person struct {
		ID   string `json:"id"`
		Name string `json:"name,omitempty"`
	}

	// Property is a tagged union: Kind selects the one populated payload.
	Property struct {
		Kind        Kind        `json:"type"`
		Title       []TextRun   `json:"title,omitempty"`
		RichText    []TextRun   `json:"rich_text,omitempty"`
		Number      *float64    `json:"number,omitempty"`
		Select      *Option     `json:"select,omitempty"`
		Status      *Option     `json:"status,omitempty"`
		MultiSelect []Option    `json:"multi_select,omitempty"`
		Date        *DateRange  `json:"date,omitempty"`
		Formula     *Formula    `json:"formula,omitempty"`
		Relation    []Reference `json:"relation,omitempty"`
		People      []Person    `json:"people,omitempty"`
	}

	// Record is one row of a collection.
	Record struct {
		ID         string              `json:"id"`
		URL        string              `json:"url"`
		Properties map[string]Property `json:"properties"`
	}
)

// Constructors used by stores that synthesize records from flat rows.

func Title(s string) Property {
	return Property{Kind: KindTitle, Title: []TextRun{{PlainText: s}}}
}

func Text(s string) Property {
	return Property{Kind: KindRichText, RichText: []TextRun{{PlainText: s}}}
}

func Number(f float64) Property {
	return Property{Kind: KindNumber, Number: &f}
}

func Select(name string) Property {
	return Property{Kind: KindSelect, Select: &Option{Name: name}}
}

func Status(name string) Property {
	return Property{Kind: KindStatus, Status: &Option{Name: name}}
}

func MultiSelect(names ...string) Property {
	opts := make([]Option, 0, len(names))
	for _, n := range names {
		opts = append(opts, Option{Name: n})
	}
	return Property{Kind: KindMultiSelect, MultiSelect: opts}
}

func Date(start string) Property {
	return Property{Kind: KindDate, Date: &DateRange{Start: start}}
}

func FormulaNumber(f float64) Property {
	return Property{Kind: KindFormula, Formula: &Formula{Type: "number", Number: &f}}
}

func FormulaString(s string) Property {
	return Property{Kind: KindFormula, Formula: &Formula{Type: "string", String: &s}}
}

func FormulaBool(b bool) Property {
	return Property{Kind: KindFormula, Formula: &Formula{Type: "boolean", Boolean: &b}}
}

func Relation(ids ...string) Property {
	refs := make([]Reference, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, Reference{ID: id})
	}
	return Property{Kind: KindRelation, Relation: refs}
}

func People(names ...string) Property {
	people := make([]Person, 0, len(names))
	for _, n := range names {
		people = append(people, Person{Name: n})
	}
	return Property{Kind: KindPeople, People: people}
}
