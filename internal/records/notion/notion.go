// Package notion reads database rows from the Notion REST API.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"renohub/internal/core"
	"renohub/internal/log"
	"renohub/internal/records"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	DefaultVersion = "2022-06-28"

	// PageSize is the largest page the query endpoint returns.
	PageSize = 100

	service       = "Notion"
	maxErrorBytes = 300
)

type Config struct {
	APIKey  string
	Version string
	BaseURL string
	// HTTPClient defaults to a pooled client with a 30s timeout.
	HTTPClient *http.Client
}

type Client struct {
	apiKey  string
	version string
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

var _ records.Store = (*Client)(nil)

// New creates a client. An empty API key is a configuration failure.
func New(cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, core.MissingConfiguration([]string{"NOTION_API_KEY"})
	}
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{
		apiKey:  cfg.APIKey,
		version: cfg.Version,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		logger:  logger.WithComponent(log.ComponentNotion),
	}
	if c.version == "" {
		c.version = DefaultVersion
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = newHTTPClient()
	}
	return c, nil
}

func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 20 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: 30 * time.Second,
	}
}

type queryBody struct {
	PageSize    int              `json:"page_size"`
	StartCursor string           `json:"start_cursor,omitempty"`
	Filter      map[string]any   `json:"filter,omitempty"`
	Sorts       []map[string]any `json:"sorts,omitempty"`
}

type queryResponse struct {
	Results    []records.Record `json:"results"`
	HasMore    bool             `json:"has_more"`
	NextCursor *string          `json:"next_cursor"`
}

// FetchAll follows next_cursor until has_more is false and returns the
// concatenated rows in server order.
func (c *Client) FetchAll(ctx context.Context, databaseID string, q records.Query) ([]records.Record, error) {
	if strings.TrimSpace(databaseID) == "" {
		return nil, core.MissingConfiguration([]string{"database id"})
	}
	body := queryBody{PageSize: PageSize, Filter: filterJSON(q.Filter), Sorts: sortsJSON(q.Sorts)}

	var all []records.Record
	for page := 1; ; page++ {
		resp, err := c.query(ctx, databaseID, body)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Results...)
		c.logger.DebugContext(ctx, "Fetched page",
			log.FieldCollection, databaseID, "page", page, log.FieldRecordCount, len(resp.Results))

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		body.StartCursor = *resp.NextCursor
	}
	if all == nil {
		all = []records.Record{}
	}
	return all, nil
}

func (c *Client) query(ctx context.Context, databaseID string, body queryBody) (*queryResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	url := fmt.Sprintf("%s/v1/databases/%s/query", c.baseURL, databaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, core.Upstream(service, 0, err.Error(), err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, core.Upstream(service, res.StatusCode, "read body: "+err.Error(), err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var cause error
		if res.StatusCode == http.StatusNotFound {
			cause = records.ErrCollectionNotFound
		}
		c.logger.WarnContext(ctx, "Notion query failed",
			log.FieldCollection, databaseID, log.FieldUpstream, res.StatusCode)
		return nil, core.Upstream(service, res.StatusCode, truncate(string(raw), maxErrorBytes), cause)
	}

	var out queryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, core.Upstream(service, res.StatusCode, "decode response: "+err.Error(), err)
	}
	return &out, nil
}

func filterJSON(f *records.Filter) map[string]any {
	if f == nil {
		return nil
	}
	kind := f.Kind
	if kind == "" {
		kind = records.KindRichText
	}
	var cond map[string]any
	switch kind {
	case records.KindNumber:
		n, err := strconv.ParseFloat(f.Equals, 64)
		if err != nil {
			return nil
		}
		cond = map[string]any{"equals": n}
	case records.KindMultiSelect, records.KindRelation, records.KindPeople:
		cond = map[string]any{"contains": f.Equals}
	default:
		cond = map[string]any{"equals": f.Equals}
	}
	return map[string]any{"property": f.Property, string(kind): cond}
}

func sortsJSON(sorts []records.Sort) []map[string]any {
	if len(sorts) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(sorts))
	for _, s := range sorts {
		dir := s.Direction
		if dir == "" {
			dir = records.Ascending
		}
		out = append(out, map[string]any{"property": s.Property, "direction": string(dir)})
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
