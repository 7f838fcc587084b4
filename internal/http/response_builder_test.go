package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"renohub/internal/core"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind core.FailureKind
		want int
	}{
		{core.FailureConfiguration, http.StatusInternalServerError},
		{core.FailureUpstream, http.StatusBadGateway},
		{core.FailureBadRequest, http.StatusBadRequest},
		{core.FailureInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(&core.Failure{Kind: tt.kind}); got != tt.want {
			t.Errorf("StatusFor(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Body(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated || w.Header().Get("X-Test") != "1" {
		t.Errorf("status = %d, headers = %v", w.Code, w.Header())
	}
	if w.Body.String() != `{"n":1}` {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 || w.Header().Get("Content-Type") != "" {
		t.Errorf("status = %d, body = %q", w.Code, w.Body.String())
	}
}

func TestJSONResponseBuilder_UnencodableBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Body(map[string]any{"f": func() {}}).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}
