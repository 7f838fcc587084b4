package google

import (
	"fmt"
	"strings"

	"renohub/internal/core"
	"renohub/internal/records"
)

// column is one header cell. A header may declare its kind with a suffix,
// e.g. "Amount (RM):number". The first column defaults to title, the rest
// to rich_text.
type column struct {
	name string
	kind records.Kind
}

var knownKinds = map[records.Kind]bool{
	records.KindTitle:       true,
	records.KindRichText:    true,
	records.KindNumber:      true,
	records.KindSelect:      true,
	records.KindStatus:      true,
	records.KindMultiSelect: true,
	records.KindDate:        true,
	records.KindFormula:     true,
	records.KindRelation:    true,
	records.KindPeople:      true,
}

func parseHeader(cells []string) []column {
	cols := make([]column, len(cells))
	for i, cell := range cells {
		name, kind := cell, records.KindRichText
		if i == 0 {
			kind = records.KindTitle
		}
		if idx := strings.LastIndex(cell, ":"); idx > 0 {
			if k := records.Kind(strings.ToLower(strings.TrimSpace(cell[idx+1:]))); knownKinds[k] {
				name, kind = cell[:idx], k
			}
		}
		cols[i] = column{name: strings.TrimSpace(name), kind: kind}
	}
	return cols
}

// parseRows converts a values matrix whose first row is the header into
// records. Blank cells are left out so alias lookups fall through to the
// next candidate. Fully blank rows are skipped.
func parseRows(tab, baseURL string, values [][]any) []records.Record {
	if len(values) == 0 {
		return []records.Record{}
	}
	cols := parseHeader(toStrings(values[0]))
	out := make([]records.Record, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		props := make(map[string]records.Property, len(cols))
		for j, col := range cols {
			cell := safeGet(row, j)
			if cell == "" || col.name == "" {
				continue
			}
			props[col.name] = cellProperty(col.kind, cell)
		}
		if len(props) == 0 {
			continue
		}
		rowNum := i + 1
		out = append(out, records.Record{
			ID:         fmt.Sprintf("%s!%d", tab, rowNum),
			URL:        fmt.Sprintf("%s#range=A%d", baseURL, rowNum),
			Properties: props,
		})
	}
	return out
}

func cellProperty(kind records.Kind, cell string) records.Property {
	switch kind {
	case records.KindTitle:
		return records.Title(cell)
	case records.KindNumber:
		if f, ok := core.ParseAmount(cell); ok {
			return records.Number(f)
		}
		return records.Text(cell)
	case records.KindSelect:
		return records.Select(cell)
	case records.KindStatus:
		return records.Status(cell)
	case records.KindMultiSelect:
		return records.MultiSelect(splitList(cell)...)
	case records.KindDate:
		return records.Date(cell)
	case records.KindFormula:
		switch strings.ToUpper(cell) {
		case "TRUE":
			return records.FormulaBool(true)
		case "FALSE":
			return records.FormulaBool(false)
		}
		if f, ok := core.ParseAmount(cell); ok {
			return records.FormulaNumber(f)
		}
		return records.FormulaString(cell)
	case records.KindRelation:
		return records.Relation(splitList(cell)...)
	case records.KindPeople:
		return records.People(splitList(cell)...)
	default:
		return records.Text(cell)
	}
}

func splitList(cell string) []string {
	parts := strings.Split(cell, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
