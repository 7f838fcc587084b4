package records

import (
	"encoding/json"

	"renohub/internal/core"
)

// Record and property payloads come from stores that do not enforce their
// own schema. Decoding is per field: a payload of the wrong JSON type is
// dropped and the rest of the record survives.

type recordWire struct {
	ID         json.RawMessage            `json:"id"`
	URL        json.RawMessage            `json:"url"`
	Properties map[string]json.RawMessage `json:"properties"`
}

func (r *Record) UnmarshalJSON(b []byte) error {
	*r = Record{}
	var w recordWire
	// A type error leaves the mismatched field empty and keeps the others.
	_ = json.Unmarshal(b, &w)
	r.ID = lenient[string](w.ID)
	r.URL = lenient[string](w.URL)
	if w.Properties != nil {
		r.Properties = make(map[string]Property, len(w.Properties))
		for name, raw := range w.Properties {
			var p Property
			_ = p.UnmarshalJSON(raw)
			r.Properties[name] = p
		}
	}
	return nil
}

type propertyWire struct {
	Kind        json.RawMessage `json:"type"`
	Title       json.RawMessage `json:"title"`
	RichText    json.RawMessage `json:"rich_text"`
	Number      json.RawMessage `json:"number"`
	Select      json.RawMessage `json:"select"`
	Status      json.RawMessage `json:"status"`
	MultiSelect json.RawMessage `json:"multi_select"`
	Date        json.RawMessage `json:"date"`
	Formula     json.RawMessage `json:"formula"`
	Relation    json.RawMessage `json:"relation"`
	People      json.RawMessage `json:"people"`
}

func (p *Property) UnmarshalJSON(b []byte) error {
	*p = Property{}
	var w propertyWire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil
	}
	p.Kind = lenient[Kind](w.Kind)
	p.Title = lenient[[]TextRun](w.Title)
	p.RichText = lenient[[]TextRun](w.RichText)
	p.Number = lenientNumber(w.Number)
	p.Select = lenient[*Option](w.Select)
	p.Status = lenient[*Option](w.Status)
	p.MultiSelect = lenient[[]Option](w.MultiSelect)
	p.Date = lenient[*DateRange](w.Date)
	p.Relation = lenient[[]Reference](w.Relation)
	p.People = lenient[[]Person](w.People)
	if len(w.Formula) > 0 {
		var f Formula
		_ = f.UnmarshalJSON(w.Formula)
		p.Formula = &f
	}
	return nil
}

type formulaWire struct {
	Type    json.RawMessage `json:"type"`
	Number  json.RawMessage `json:"number"`
	String  json.RawMessage `json:"string"`
	Boolean json.RawMessage `json:"boolean"`
	Date    json.RawMessage `json:"date"`
}

func (f *Formula) UnmarshalJSON(b []byte) error {
	*f = Formula{}
	var w formulaWire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil
	}
	f.Type = lenient[string](w.Type)
	f.Number = lenientNumber(w.Number)
	f.String = lenient[*string](w.String)
	f.Boolean = lenient[*bool](w.Boolean)
	f.Date = lenient[*DateRange](w.Date)
	return nil
}

// lenient decodes raw into a T, or returns the zero T when raw is absent or
// has the wrong shape.
func lenient[T any](raw json.RawMessage) T {
	var v T
	if len(raw) == 0 {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// lenientNumber also accepts display strings such as "1,200" or "RM 50".
func lenientNumber(raw json.RawMessage) *float64 {
	if n := lenient[*float64](raw); n != nil {
		return n
	}
	if s := lenient[*string](raw); s != nil {
		if f, ok := core.ParseAmount(*s); ok {
			return &f
		}
	}
	return nil
}
