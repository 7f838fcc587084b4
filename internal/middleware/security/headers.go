package security

import (
	"fmt"
	"net/http"
	"strings"
)

// HeadersConfig holds response header settings for the JSON API.
type HeadersConfig struct {
	// AllowOrigin is the Access-Control-Allow-Origin value; "*" allows any
	// origin and an empty value disables CORS headers.
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int

	HSTSMaxAge          int
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CSP                 string
}

// DefaultHeadersConfig returns the settings used by the dashboard API.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		AllowOrigin:  "*",
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:       600,

		HSTSMaxAge:          31536000,
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
		CSP:                 "default-src 'none'; frame-ancestors 'none'",
	}
}

// HeadersMiddleware applies CORS and security headers to responses
type HeadersMiddleware struct {
	config  HeadersConfig
	methods string
	headers string
}

// NewHeadersMiddleware creates a new security headers middleware
func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	return &HeadersMiddleware{
		config:  config,
		methods: strings.Join(config.AllowMethods, ", "),
		headers: strings.Join(config.AllowHeaders, ", "),
	}
}

// Middleware returns the HTTP middleware function
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.applyHeaders(w, r)
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) applyHeaders(w http.ResponseWriter, r *http.Request) {
	headers := w.Header()

	if h.config.AllowOrigin != "" {
		headers.Set("Access-Control-Allow-Origin", h.config.AllowOrigin)
		if h.config.AllowOrigin != "*" {
			headers.Add("Vary", "Origin")
		}
		headers.Set("Access-Control-Allow-Methods", h.methods)
		headers.Set("Access-Control-Allow-Headers", h.headers)
		headers.Set("Access-Control-Expose-Headers", "X-Request-ID")
		if h.config.MaxAge > 0 {
			headers.Set("Access-Control-Max-Age", fmt.Sprintf("%d", h.config.MaxAge))
		}
	}

	headers.Set("X-Content-Type-Options", h.config.XContentTypeOptions)
	headers.Set("X-Frame-Options", h.config.XFrameOptions)
	headers.Set("Referrer-Policy", h.config.ReferrerPolicy)
	if h.config.CSP != "" {
		headers.Set("Content-Security-Policy", h.config.CSP)
	}
	headers.Set("Cache-Control", "no-store")

	// HSTS header (only for HTTPS)
	if r.TLS != nil && h.config.HSTSMaxAge > 0 {
		headers.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", h.config.HSTSMaxAge))
	}
}
