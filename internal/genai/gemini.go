// Package genai calls the Gemini text-generation API.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"renohub/internal/core"
	"renohub/internal/log"
)

const (
	DefaultBaseURL         = "https://generativelanguage.googleapis.com"
	DefaultModel           = "gemini-1.5-flash"
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 500

	service       = "gemini"
	maxErrorBytes = 300
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int64
	// Endpoint overrides the API base URL, for tests.
	Endpoint string
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// Gemini is a Generator backed by the v1beta generateContent endpoint.
type Gemini struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int64
	http        *http.Client
	logger      *log.Logger
}

var _ Generator = (*Gemini)(nil)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int64   `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content *content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGemini builds a client. An empty API key is a configuration failure.
func NewGemini(ctx context.Context, cfg Config, logger *log.Logger) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, core.MissingConfiguration([]string{"GEMINI_API_KEY"})
	}
	if logger == nil {
		logger = log.Discard()
	}

	g := &Gemini{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.Endpoint, "/"),
		model:       strings.TrimPrefix(cfg.Model, "models/"),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		http:        cfg.HTTPClient,
		logger:      logger.WithComponent(log.ComponentGenAI),
	}
	if g.baseURL == "" {
		g.baseURL = DefaultBaseURL
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.temperature <= 0 {
		g.temperature = DefaultTemperature
	}
	if g.maxTokens <= 0 {
		g.maxTokens = DefaultMaxOutputTokens
	}
	if g.http == nil {
		g.http = &http.Client{Timeout: 30 * time.Second}
	}
	g.logger.DebugContext(ctx, "Gemini client ready", "model", g.model)
	return g, nil
}

// Generate sends one single-turn request and joins the text parts of the
// first candidate. Upstream errors carry the HTTP status.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     g.temperature,
			MaxOutputTokens: g.maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	res, err := g.http.Do(req)
	if err != nil {
		return "", core.Upstream(service, 0, err.Error(), err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", core.Upstream(service, res.StatusCode, "read body: "+err.Error(), err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail := errorDetail(raw)
		g.logger.WarnContext(ctx, "Gemini returned an error", log.FieldUpstream, res.StatusCode, log.FieldError, detail)
		return "", core.Upstream(service, res.StatusCode, detail, nil)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", core.Upstream(service, res.StatusCode, "decode response: "+err.Error(), err)
	}
	text := firstCandidateText(out)
	if text == "" {
		return "", core.Upstream(service, res.StatusCode, "no text in response", nil)
	}
	return text, nil
}

func (g *Gemini) url() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
}

// errorDetail prefers the API's error message and falls back to the raw body.
func errorDetail(raw []byte) string {
	var e errorResponse
	if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBytes {
		s = s[:maxErrorBytes]
	}
	return s
}

func firstCandidateText(resp generateResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var parts []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

// Unconfigured is the Generator used when no API key is set. Every call
// fails with a configuration failure.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, string) (string, error) {
	return "", core.MissingConfiguration([]string{"GEMINI_API_KEY"})
}
