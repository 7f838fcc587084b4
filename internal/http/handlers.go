package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"renohub/internal/log"
)

const dashboardMethods = "GET, POST, OPTIONS"

// handleDashboard serves the snapshot on GET and generated text on POST.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		NewJSONResponse().Status(http.StatusNoContent).Write(w)
	case http.MethodGet:
		s.handleSnapshot(w, r)
	case http.MethodPost:
		s.handleSummarize(w, r)
	default:
		MethodNotAllowedError(dashboardMethods).Write(w)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	snap, err := s.svc.Snapshot(ctx)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	NewJSONResponse().Body(snap).Write(w)
}

type summarizeResponse struct {
	Text string `json:"text"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	req, err := ParsePromptRequest(r)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	text, err := s.svc.Summarize(ctx, req)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	log.FromContext(ctx).DebugContext(ctx, "Prompt answered", log.FieldPromptKind, string(req.Type))
	NewJSONResponse().Body(summarizeResponse{Text: text}).Write(w)
}

// handleHealth answers liveness checks with the process uptime.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks every configured dependency with a shared deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any, len(s.readiness)+1)

	for _, c := range s.readiness {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = "failed: " + strings.TrimSpace(err.Error())
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}

	limiter := s.rateLimiter.GetMetrics()
	checks["rate_limiter"] = map[string]any{
		"active_clients": limiter.ClientCount,
		"hits":           limiter.TotalHits,
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
