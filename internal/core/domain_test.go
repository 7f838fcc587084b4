package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-06-15", "2024-06-15", true},
		{" 2024-06-15 ", "2024-06-15", true},
		{"2024-06-15T23:30:00+08:00", "2024-06-15", true},
		{"2024-06-15T10:00:00.000Z", "2024-06-15", true},
		{"2024-06-15T10:00", "2024-06-15", true},
		{"not-a-date", "", false},
		{"", "", false},
		{"2024-13-01", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		if ok != tc.ok {
			t.Fatalf("%q expected ok=%v, got %v", tc.in, tc.ok, ok)
		}
		if got.String() != tc.want {
			t.Fatalf("%q expected %q, got %q", tc.in, tc.want, got.String())
		}
	}
}

func TestDateIn(t *testing.T) {
	kl, err := time.LoadLocation("Asia/Kuala_Lumpur")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	instant := time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC)
	if got := DateIn(instant, kl).String(); got != "2024-06-01" {
		t.Fatalf("expected 2024-06-01, got %s", got)
	}
	if got := DateIn(instant, nil).String(); got != "2024-05-31" {
		t.Fatalf("expected 2024-05-31, got %s", got)
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}{A: NewDate(2024, 6, 1)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":"2024-06-01","b":null}` {
		t.Fatalf("unexpected json %s", b)
	}

	var back struct {
		A Date `json:"a"`
		B Date `json:"b"`
		C Date `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"2024-06-01","b":null,"c":"garbage"}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.A.String() != "2024-06-01" || !back.B.IsEmpty() || !back.C.IsEmpty() {
		t.Fatalf("unexpected round trip %+v", back)
	}
}

func TestDateYearMonth(t *testing.T) {
	if got := NewDate(2024, 1, 31).YearMonth(); got != "2024-01" {
		t.Fatalf("expected 2024-01, got %s", got)
	}
	if got := (Date{}).YearMonth(); got != "" {
		t.Fatalf("expected empty key for zero date, got %q", got)
	}
	if got := NewDate(2024, 1, 31).AddDays(30).String(); got != "2024-03-01" {
		t.Fatalf("expected 2024-03-01, got %s", got)
	}
}

func TestFailure(t *testing.T) {
	f := MissingConfiguration([]string{"NOTION_API_KEY", "PAYMENTS_DB_ID"})
	if f.Kind != FailureConfiguration {
		t.Fatalf("expected configuration kind, got %s", f.Kind)
	}
	if !strings.Contains(f.Error(), "PAYMENTS_DB_ID") {
		t.Fatalf("error should list missing items: %v", f)
	}

	cause := errors.New("connection refused")
	up := Upstream("notion", 503, "service unavailable", cause)
	if !errors.Is(up, cause) {
		t.Fatalf("upstream failure should unwrap to its cause")
	}
	if !strings.Contains(up.Error(), "status 503") {
		t.Fatalf("upstream failure should carry status: %v", up)
	}

	if got := AsFailure(up); got != up {
		t.Fatalf("AsFailure should return the same failure")
	}
	if got := AsFailure(errors.New("boom")); got.Kind != FailureInternal {
		t.Fatalf("expected internal kind, got %s", got.Kind)
	}
	if AsFailure(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
