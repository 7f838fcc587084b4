package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"renohub/internal/core"
	"renohub/internal/records"
)

type recorded struct {
	mu     sync.Mutex
	bodies []map[string]any
	header http.Header
	path   string
}

func newTestClient(t *testing.T, h func(rec *recorded, w http.ResponseWriter, body map[string]any)) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		rec.mu.Lock()
		rec.bodies = append(rec.bodies, body)
		rec.header = r.Header.Clone()
		rec.path = r.URL.Path
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		h(rec, w, body)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "secret", BaseURL: srv.URL, HTTPClient: srv.Client()}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, rec
}

func page(ids []string, next string) string {
	var rows []string
	for _, id := range ids {
		rows = append(rows, fmt.Sprintf(`{"id":%q,"url":"https://notion.so/%s","properties":{"Name":{"type":"title","title":[{"plain_text":"Row %s"}]}}}`, id, id, id))
	}
	if next == "" {
		return fmt.Sprintf(`{"results":[%s],"has_more":false,"next_cursor":null}`, strings.Join(rows, ","))
	}
	return fmt.Sprintf(`{"results":[%s],"has_more":true,"next_cursor":%q}`, strings.Join(rows, ","), next)
}

func TestFetchAll_Paginates(t *testing.T) {
	c, rec := newTestClient(t, func(_ *recorded, w http.ResponseWriter, body map[string]any) {
		switch body["start_cursor"] {
		case nil:
			fmt.Fprint(w, page([]string{"a", "b"}, "c1"))
		case "c1":
			fmt.Fprint(w, page([]string{"c"}, "c2"))
		default:
			fmt.Fprint(w, page(nil, ""))
		}
	})

	got, err := c.FetchAll(context.Background(), "db-1", records.Query{})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 3 || got[0].ID != "a" || got[2].ID != "c" {
		t.Fatalf("got %+v", got)
	}
	if records.FirstText(got[1], "Name") != "Row b" {
		t.Errorf("title not decoded: %+v", got[1])
	}
	if len(rec.bodies) != 3 {
		t.Fatalf("requests = %d, want 3", len(rec.bodies))
	}
	if rec.bodies[0]["page_size"] != float64(PageSize) {
		t.Errorf("page_size = %v", rec.bodies[0]["page_size"])
	}
	if rec.path != "/v1/databases/db-1/query" {
		t.Errorf("path = %q", rec.path)
	}
	if rec.header.Get("Authorization") != "Bearer secret" || rec.header.Get("Notion-Version") != DefaultVersion {
		t.Errorf("headers = %v", rec.header)
	}
}

func TestFetchAll_MistypedPropertyKeepsRecords(t *testing.T) {
	c, _ := newTestClient(t, func(_ *recorded, w http.ResponseWriter, body map[string]any) {
		if body["start_cursor"] == nil {
			fmt.Fprint(w, `{"results":[
				{"id":"p1","url":"u1","properties":{
					"Payment For":{"type":"title","title":[{"plain_text":"Permit fee"}]},
					"Amount (RM)":{"type":"number","number":"1,200"}}},
				{"id":"p2","url":"u2","properties":{
					"Payment For":{"type":"title","title":[{"plain_text":"Tranche 1"}]},
					"Progress":{"type":"formula","formula":{"type":"number","number":"soon"}}}}
			],"has_more":true,"next_cursor":"c1"}`)
			return
		}
		fmt.Fprint(w, page([]string{"p3"}, ""))
	})

	got, err := c.FetchAll(context.Background(), "payments", records.Query{})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 3 || got[0].ID != "p1" || got[1].ID != "p2" || got[2].ID != "p3" {
		t.Fatalf("got %+v", got)
	}
	if n, ok := records.FirstNumber(got[0], "Amount (RM)"); !ok || n != 1200 {
		t.Errorf("amount = %v, %v", n, ok)
	}
	if records.FirstText(got[1], "Payment For") != "Tranche 1" {
		t.Errorf("second record lost its title: %+v", got[1])
	}
	if _, ok := records.FirstNumber(got[1], "Progress"); ok {
		t.Errorf("mistyped formula should resolve to null")
	}
}

func TestFetchAll_EmptyIsNonNil(t *testing.T) {
	c, _ := newTestClient(t, func(_ *recorded, w http.ResponseWriter, _ map[string]any) {
		fmt.Fprint(w, page(nil, ""))
	})
	got, err := c.FetchAll(context.Background(), "db", records.Query{})
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("FetchAll() = %v, %v", got, err)
	}
}

func TestFetchAll_FilterAndSorts(t *testing.T) {
	c, rec := newTestClient(t, func(_ *recorded, w http.ResponseWriter, _ map[string]any) {
		fmt.Fprint(w, page([]string{"x"}, ""))
	})
	q := records.Query{
		Filter: &records.Filter{Property: "Company_Name", Kind: records.KindTitle, Equals: "Acme"},
		Sorts:  []records.Sort{{Property: "Due Date", Direction: records.Descending}},
	}
	if _, err := c.FetchAll(context.Background(), "db", q); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	body := rec.bodies[0]
	filter, _ := body["filter"].(map[string]any)
	title, _ := filter["title"].(map[string]any)
	if filter["property"] != "Company_Name" || title["equals"] != "Acme" {
		t.Errorf("filter = %v", filter)
	}
	sorts, _ := body["sorts"].([]any)
	if len(sorts) != 1 || sorts[0].(map[string]any)["direction"] != "descending" {
		t.Errorf("sorts = %v", sorts)
	}
}

func TestFetchAll_ErrorStatus(t *testing.T) {
	long := strings.Repeat("x", 1000)
	c, _ := newTestClient(t, func(_ *recorded, w http.ResponseWriter, _ map[string]any) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"object":"error","message":"%s"}`, long)
	})
	_, err := c.FetchAll(context.Background(), "db", records.Query{})
	f := core.AsFailure(err)
	if f.Kind != core.FailureUpstream || f.Status != http.StatusNotFound {
		t.Fatalf("failure = %+v", f)
	}
	if len(f.Detail) != maxErrorBytes {
		t.Errorf("detail length = %d, want %d", len(f.Detail), maxErrorBytes)
	}
	if !errors.Is(err, records.ErrCollectionNotFound) {
		t.Errorf("404 should wrap ErrCollectionNotFound")
	}
}

func TestFetchAll_TransportError(t *testing.T) {
	c, err := New(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.FetchAll(context.Background(), "db", records.Query{})
	if f := core.AsFailure(err); f.Kind != core.FailureUpstream || f.Status != 0 {
		t.Fatalf("failure = %+v", f)
	}
}

func TestNew_MissingKey(t *testing.T) {
	_, err := New(Config{}, nil)
	if f := core.AsFailure(err); f.Kind != core.FailureConfiguration || f.Missing[0] != "NOTION_API_KEY" {
		t.Fatalf("err = %v", err)
	}
}

func TestFilterJSON(t *testing.T) {
	tests := []struct {
		name   string
		filter *records.Filter
		want   string
	}{
		{"nil", nil, "null"},
		{"default kind", &records.Filter{Property: "P", Equals: "v"}, `{"property":"P","rich_text":{"equals":"v"}}`},
		{"number", &records.Filter{Property: "N", Kind: records.KindNumber, Equals: "3"}, `{"number":{"equals":3},"property":"N"}`},
		{"bad number", &records.Filter{Property: "N", Kind: records.KindNumber, Equals: "x"}, "null"},
		{"multi select", &records.Filter{Property: "T", Kind: records.KindMultiSelect, Equals: "a"}, `{"multi_select":{"contains":"a"},"property":"T"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := json.Marshal(filterJSON(tt.filter))
			if string(b) != tt.want {
				t.Errorf("filterJSON() = %s, want %s", b, tt.want)
			}
		})
	}
}
