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
	FieldReferer      = "referer"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldEntryID      = "entry_id"
	FieldNetWorth     = "net_worth"
	FieldTotalAssets  = "total_assets"
	FieldLiabilities  = "total_liabilities"
	FieldHistoryCount = "history_count"
	FieldBillID       = "bill_id"
	FieldBillName     = "bill_name"
	FieldBillAmount   = "bill_amount"
	FieldDueDay       = "due_day"
	FieldModel        = "model"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentHistory  = "history"
	ComponentBills    = "bills"
	ComponentStorage  = "storage"
	ComponentAI       = "ai"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentNotify   = "notify"
	ComponentCache    = "cache"
	ComponentBackend  = "backend"
	ComponentTemplate = "template"
	ComponentSheets   = "sheets"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpAppend   = "append"
	OpToggle   = "toggle"
	OpReset    = "reset"
	OpParse    = "parse"
	OpInsights = "insights"
	OpRemind   = "remind"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
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

// WithEntry adds the derived numbers of a recorded snapshot.
func (f LogFields) WithEntry(id string, netWorth, assets, liabilities float64) LogFields {
	f[FieldEntryID] = id
	f[FieldNetWorth] = netWorth
	f[FieldTotalAssets] = assets
	f[FieldLiabilities] = liabilities
	return f
}

// WithBill adds bill fields.
func (f LogFields) WithBill(id, name string, amount float64, dueDay int) LogFields {
	f[FieldBillID] = id
	f[FieldBillName] = name
	f[FieldBillAmount] = amount
	f[FieldDueDay] = dueDay
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
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
