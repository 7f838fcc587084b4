// Package http serves the dashboard API.
//
// This file implements the builder used for every JSON response, including
// the mapping from request failures to status codes.

package http

import (
	"encoding/json"
	"net/http"

	"renohub/internal/core"
	"renohub/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes only
// the status line and headers.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"An internal server error occurred.","kind":"internal"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
}

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error          string   `json:"error"`
	Kind           string   `json:"kind"`
	Detail         string   `json:"detail,omitempty"`
	Missing        []string `json:"missing,omitempty"`
	UpstreamStatus int      `json:"upstreamStatus,omitempty"`
}

// StatusFor maps a failure kind to the response status.
func StatusFor(f *core.Failure) int {
	switch f.Kind {
	case core.FailureBadRequest:
		return http.StatusBadRequest
	case core.FailureUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FailureResponse builds the response for err, classifying anything that is
// not a *core.Failure as internal.
func FailureResponse(err error) *JSONResponseBuilder {
	f := core.AsFailure(err)
	body := ErrorBody{
		Error:          f.Reason,
		Kind:           string(f.Kind),
		Detail:         f.Detail,
		Missing:        f.Missing,
		UpstreamStatus: f.Status,
	}
	if f.Kind == core.FailureInternal {
		body.Error = "An internal server error occurred."
	}
	return NewJSONResponse().Status(StatusFor(f)).Body(body)
}

// writeFailure logs err at a level matching its status and writes it.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	resp := FailureResponse(err)
	logger := log.FromContext(r.Context())
	if resp.statusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, err, log.FieldPath, r.URL.Path)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", log.FieldError, err, log.FieldPath, r.URL.Path)
	}
	resp.Write(w)
}

// MethodNotAllowedError creates a 405 response listing the allowed methods.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusMethodNotAllowed).
		Header("Allow", allowedMethods).
		Body(ErrorBody{Error: "Method Not Allowed", Kind: string(core.FailureBadRequest)})
}

// TooManyRequestsError creates the 429 response used by the rate limiter.
func TooManyRequestsError() *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusTooManyRequests).
		Body(ErrorBody{Error: "Rate limit exceeded. Please try again later.", Kind: string(core.FailureBadRequest)})
}
