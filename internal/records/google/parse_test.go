package google

import (
	"reflect"
	"testing"

	"renohub/internal/records"
)

func TestParseHeader(t *testing.T) {
	got := parseHeader([]string{"Name", "Status:status", "Notes", "Ratio: Number", "Time: 10:30"})
	want := []column{
		{"Name", records.KindTitle},
		{"Status", records.KindStatus},
		{"Notes", records.KindRichText},
		{"Ratio", records.KindNumber},
		{"Time: 10:30", records.KindRichText},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseHeader() = %+v\nwant %+v", got, want)
	}
}

func TestParseRows(t *testing.T) {
	values := [][]any{
		{"Title", "Tags:multi_select", "Over:formula", "Owner:people", "Budget:number"},
		{"Demolition", "a, b,", "TRUE", "Solomon", "n/a"},
		{"", "", "", "", ""},
		{"Wet works", "", "12.5", "", "1000"},
	}
	recs := parseRows("Milestones", "https://example.test", values)
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}

	first := recs[0]
	if first.ID != "Milestones!2" || first.URL != "https://example.test#range=A2" {
		t.Errorf("id/url = %q %q", first.ID, first.URL)
	}
	if got := records.FirstList(first, "Tags"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("tags = %v", got)
	}
	if b, ok := records.FirstBool(first, "Over"); !ok || !b {
		t.Errorf("formula bool = %v, %v", b, ok)
	}
	if got := records.FirstList(first, "Owner"); !reflect.DeepEqual(got, []string{"Solomon"}) {
		t.Errorf("people = %v", got)
	}
	if first.Properties["Budget"].Kind != records.KindRichText {
		t.Errorf("unparsable number should be kept as text")
	}

	second := recs[1]
	if _, ok := second.Properties["Tags"]; ok {
		t.Errorf("blank cells must be absent")
	}
	if n, ok := records.FirstNumber(second, "Over"); !ok || n != 12.5 {
		t.Errorf("formula number = %v, %v", n, ok)
	}
}

func TestParseRows_Empty(t *testing.T) {
	if got := parseRows("x", "", nil); got == nil || len(got) != 0 {
		t.Fatalf("parseRows(nil) = %v", got)
	}
}
