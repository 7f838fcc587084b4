// Package google reads collections from a Google Sheets spreadsheet. Each
// collection is a tab whose first row holds the property names.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"renohub/internal/core"
	"renohub/internal/log"
	"renohub/internal/records"
)

const service = "Google Sheets"

type Config struct {
	SpreadsheetID string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
	// Endpoint overrides the API base URL and disables authentication, for tests.
	Endpoint string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger
}

var _ records.Store = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, core.MissingConfiguration([]string{"GOOGLE_SPREADSHEET_ID"})
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, logger: logger}, nil
}

func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	if cfg.Endpoint != "" {
		return gsheet.NewService(ctx, goption.WithEndpoint(cfg.Endpoint), goption.WithoutAuthentication())
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", cfg.CredentialsFile)
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, core.MissingConfiguration([]string{"GOOGLE_SERVICE_ACCOUNT_JSON"})
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// FetchAll reads the whole tab named collectionID. Filtering and sorting
// happen client side.
func (c *Client) FetchAll(ctx context.Context, collectionID string, q records.Query) ([]records.Record, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	tab := strings.TrimSpace(collectionID)
	if tab == "" {
		return nil, core.MissingConfiguration([]string{"sheet name"})
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteTab(tab)).
		ValueRenderOption("FORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, c.upstream(ctx, tab, err)
	}

	recs := parseRows(tab, c.spreadsheetURL(), resp.Values)
	c.logger.DebugContext(ctx, "Read sheet", log.FieldCollection, tab, log.FieldRecordCount, len(recs))
	return records.Apply(recs, q), nil
}

func (c *Client) upstream(ctx context.Context, tab string, err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return core.Upstream(service, 0, err.Error(), err)
	}
	c.logger.WarnContext(ctx, "Sheets read failed", log.FieldCollection, tab, log.FieldUpstream, apiErr.Code)
	cause := err
	if apiErr.Code == 400 && strings.Contains(apiErr.Message, "Unable to parse range") {
		cause = fmt.Errorf("%w: %s", records.ErrCollectionNotFound, tab)
	}
	return core.Upstream(service, apiErr.Code, apiErr.Message, cause)
}

func (c *Client) spreadsheetURL() string {
	return "https://docs.google.com/spreadsheets/d/" + c.spreadsheetID
}

// quoteTab turns a tab name into an A1 range covering the whole sheet.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
