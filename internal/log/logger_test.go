package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_StampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentAggregate, Output: &buf})

	logger.Info("snapshot ready", FieldPayments, 3)
	logger.WithComponent(ComponentGates).Warn("requirement map malformed")

	out := buf.String()
	if !strings.Contains(out, "component=aggregate") || !strings.Contains(out, "payments=3") {
		t.Errorf("missing aggregate fields in %q", out)
	}
	if !strings.Contains(out, "component=gates") {
		t.Errorf("missing gates component in %q", out)
	}
}

func TestFromContext(t *testing.T) {
	logger := Discard()
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected logger stored in context")
	}
	if got := FromContext(context.Background()); got == nil || got.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %+v", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Component: ComponentHTTP, Output: &buf})

	handler := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "handled")
		}),
	))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Errorf("request id not propagated: %q", buf.String())
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Component: ComponentHTTP, Output: &buf}))

	r := httptest.NewRequest(http.MethodPost, "/api/dashboard", nil)
	sl.LogHTTPEnd(context.Background(), r, http.StatusBadGateway, 12, "10.0.0.1")
	sl.LogSnapshotBuilt(context.Background(), 4, 10, 7, 3, 85)
	sl.LogError(context.Background(), "fetch failed", errors.New("timeout"), ComponentNotion, OpFetch, nil)

	out := buf.String()
	for _, want := range []string{"level=ERROR", "status_code=502", "milestones=4", "gates=3", "error=timeout", "operation=fetch"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
