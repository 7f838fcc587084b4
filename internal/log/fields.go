package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldCollection   = "collection"
	FieldRecordCount  = "record_count"
	FieldMilestones   = "milestones"
	FieldDeliverables = "deliverables"
	FieldPayments     = "payments"
	FieldGates        = "gates"
	FieldVendor       = "vendor"
	FieldPromptKind   = "prompt_kind"
	FieldUpstream     = "upstream_status"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAggregate = "aggregate"
	ComponentRecords   = "records"
	ComponentNotion    = "notion"
	ComponentSheets    = "sheets"
	ComponentStorage   = "storage"
	ComponentGates     = "gates"
	ComponentVendors   = "vendors"
	ComponentGenAI     = "genai"
	ComponentCache     = "cache"
	ComponentMirror    = "mirror"
	ComponentBackend   = "backend"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
)

// Operations defines standard operation names
const (
	OpFetch     = "fetch"
	OpNormalize = "normalize"
	OpAggregate = "aggregate"
	OpEvaluate  = "evaluate"
	OpEnrich    = "enrich"
	OpGenerate  = "generate"
	OpMirror    = "mirror"
	OpMigrate   = "migrate"
	OpValidate  = "validate"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes mirror core.FailureKind for log filtering
const (
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeUpstream      = "upstream_error"
	ErrorTypeBadRequest    = "bad_request_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCollection adds the collection id and how many records it returned
func (f LogFields) WithCollection(collection string, count int) LogFields {
	f[FieldCollection] = collection
	f[FieldRecordCount] = count
	return f
}

// WithSnapshot adds entity counts of an aggregation run
func (f LogFields) WithSnapshot(milestones, deliverables, payments, gates int) LogFields {
	f[FieldMilestones] = milestones
	f[FieldDeliverables] = deliverables
	f[FieldPayments] = payments
	f[FieldGates] = gates
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
