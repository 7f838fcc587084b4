package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Record backends.
const (
	BackendNotion = "notion"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var validBackends = []string{BackendNotion, BackendSheets, BackendSQLite, BackendMemory}

type Config struct {
	// HTTP Server
	Port            string
	RequestTimeout  time.Duration
	CORSAllowOrigin string
	// SummaryRateLimit is the number of POST requests a client may make per minute.
	SummaryRateLimit int

	// Logging
	LogLevel string

	// Backend selection
	RecordBackend string

	// Notion
	NotionAPIKey  string
	NotionVersion string
	NotionBaseURL string

	// Collection identifiers: Notion database ids, sheet tab names or
	// fixture/mirror collection names depending on the backend.
	MilestonesDBID     string
	DeliverablesDBID   string
	PaymentsDBID       string
	ConfigDBID         string
	VendorRegistryDBID string

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
	GoogleApplicationCredsEnv string

	// Database
	SQLiteDBPath string

	// Memory backend
	DataDirectory string

	// Text generation
	GeminiAPIKey    string
	GeminiModel     string
	GeminiTemp      float64
	GeminiMaxTokens int

	// Vendor cache
	RedisURL        string
	VendorCacheSize int
	VendorCacheTTL  time.Duration

	// Reporting
	ReportTimezone  string
	TopVendorsLimit int
	TopVendorsMode  string
	// MilestonesSort is the milestone property the fetch is ordered by,
	// ascending. "none" keeps store order.
	MilestonesSort string
}

func Load() *Config {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 25*time.Second),
		CORSAllowOrigin:  getEnv("CORS_ALLOW_ORIGIN", "*"),
		SummaryRateLimit: getEnvInt("SUMMARY_RATE_LIMIT", 20),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		RecordBackend: strings.ToLower(getEnv("RECORD_BACKEND", BackendNotion)),

		NotionAPIKey:  getEnv("NOTION_API_KEY", ""),
		NotionVersion: getEnv("NOTION_VERSION", "2022-06-28"),
		NotionBaseURL: getEnv("NOTION_BASE_URL", "https://api.notion.com"),

		MilestonesDBID:     getEnv("MILESTONES_DB_ID", ""),
		DeliverablesDBID:   getEnv("DELIVERABLES_DB_ID", ""),
		PaymentsDBID:       getEnv("PAYMENTS_DB_ID", ""),
		ConfigDBID:         getEnv("CONFIG_DB_ID", ""),
		VendorRegistryDBID: getEnv("VENDOR_REGISTRY_DB_ID", ""),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredsEnv: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/renohub.db"),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiTemp:      getEnvFloat("GEMINI_TEMPERATURE", 0.7),
		GeminiMaxTokens: getEnvInt("GEMINI_MAX_TOKENS", 500),

		RedisURL:        getEnv("REDIS_URL", ""),
		VendorCacheSize: getEnvInt("VENDOR_CACHE_SIZE", 256),
		VendorCacheTTL:  getEnvDuration("VENDOR_CACHE_TTL", 6*time.Hour),

		ReportTimezone:  getEnv("REPORT_TIMEZONE", "UTC"),
		TopVendorsLimit: getEnvInt("TOP_VENDORS_LIMIT", 5),
		TopVendorsMode:  strings.ToLower(getEnv("TOP_VENDORS_MODE", "outstanding")),
		MilestonesSort:  getEnv("MILESTONES_SORT_PROPERTY", "StartDate"),
	}

	return cfg
}

// MilestoneSortProperty returns the property milestones are ordered by, or
// "" when ordering is disabled.
func (c *Config) MilestoneSortProperty() string {
	p := strings.TrimSpace(c.MilestonesSort)
	if strings.EqualFold(p, "none") {
		return ""
	}
	return p
}

// Collections holds the resolved identifier of each collection.
type Collections struct {
	Milestones     string
	Deliverables   string
	Payments       string
	Config         string
	VendorRegistry string
}

// LocalCollections are the collection names used by the sqlite and memory
// backends when no identifier is configured, and by the mirror as targets.
var LocalCollections = Collections{
	Milestones:     "milestones",
	Deliverables:   "deliverables",
	Payments:       "payments",
	Config:         "config",
	VendorRegistry: "vendors",
}

// Collections returns the configured identifiers. Local backends fall back
// to LocalCollections except for the vendor registry, which stays opt-in;
// Notion and Sheets identifiers have no default.
func (c *Config) Collections() Collections {
	cols := Collections{
		Milestones:     c.MilestonesDBID,
		Deliverables:   c.DeliverablesDBID,
		Payments:       c.PaymentsDBID,
		Config:         c.ConfigDBID,
		VendorRegistry: c.VendorRegistryDBID,
	}
	if c.RecordBackend == BackendSQLite || c.RecordBackend == BackendMemory {
		cols.Milestones = orDefault(cols.Milestones, LocalCollections.Milestones)
		cols.Deliverables = orDefault(cols.Deliverables, LocalCollections.Deliverables)
		cols.Payments = orDefault(cols.Payments, LocalCollections.Payments)
		cols.Config = orDefault(cols.Config, LocalCollections.Config)
	}
	return cols
}

// MissingRecordStore lists the required variables that are absent for the
// selected backend, in a stable order. An empty result means the snapshot
// can be attempted.
func (c *Config) MissingRecordStore() []string {
	var missing []string
	switch c.RecordBackend {
	case BackendNotion:
		if c.NotionAPIKey == "" {
			missing = append(missing, "NOTION_API_KEY")
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			missing = append(missing, "GOOGLE_SPREADSHEET_ID")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleApplicationCredsEnv == "" {
			missing = append(missing, "GOOGLE_SERVICE_ACCOUNT_JSON")
		}
	}

	cols := c.Collections()
	for _, req := range []struct{ name, value string }{
		{"MILESTONES_DB_ID", cols.Milestones},
		{"DELIVERABLES_DB_ID", cols.Deliverables},
		{"PAYMENTS_DB_ID", cols.Payments},
		{"CONFIG_DB_ID", cols.Config},
	} {
		if strings.TrimSpace(req.value) == "" {
			missing = append(missing, req.name)
		}
	}
	return missing
}

// Location resolves ReportTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid.
// Absent credentials are not an error here; see MissingRecordStore.
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate record backend
	isValidBackend := false
	for _, backend := range validBackends {
		if c.RecordBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid record backend '%s': must be one of %v", c.RecordBackend, validBackends))
	}

	if c.RecordBackend == BackendSQLite && c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}
	if c.RecordBackend == BackendMemory && c.DataDirectory == "" {
		errors = append(errors, "data directory cannot be empty when using memory backend")
	}

	if c.NotionBaseURL != "" {
		if u, err := url.Parse(c.NotionBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid Notion base URL '%s': must be an http(s) URL", c.NotionBaseURL))
		}
	}

	if c.RedisURL != "" {
		if u, err := url.Parse(c.RedisURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': %v", c.RedisURL, err))
		} else if u.Scheme != "redis" && u.Scheme != "rediss" {
			errors = append(errors, fmt.Sprintf("invalid Redis URL scheme '%s': must be 'redis' or 'rediss'", u.Scheme))
		}
	}

	if _, err := time.LoadLocation(c.ReportTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid report timezone '%s': %v", c.ReportTimezone, err))
	}

	if c.TopVendorsMode != "outstanding" && c.TopVendorsMode != "paid" {
		errors = append(errors, fmt.Sprintf("invalid top vendors mode '%s': must be 'outstanding' or 'paid'", c.TopVendorsMode))
	}
	if c.TopVendorsLimit < 1 || c.TopVendorsLimit > 100 {
		errors = append(errors, fmt.Sprintf("invalid top vendors limit %d: must be between 1 and 100", c.TopVendorsLimit))
	}

	if c.GeminiTemp < 0 || c.GeminiTemp > 2 {
		errors = append(errors, fmt.Sprintf("invalid Gemini temperature %v: must be between 0 and 2", c.GeminiTemp))
	}
	if c.GeminiMaxTokens < 1 {
		errors = append(errors, fmt.Sprintf("invalid Gemini max tokens %d: must be at least 1", c.GeminiMaxTokens))
	}

	if c.VendorCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid vendor cache size %d: must be at least 1", c.VendorCacheSize))
	}
	if c.VendorCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid vendor cache TTL %v: must be at least 1 second", c.VendorCacheTTL))
	}

	if c.SummaryRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary rate limit %d: must be at least 1", c.SummaryRateLimit))
	}
	if c.RequestTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 1 second", c.RequestTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
