package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldTransactionID = "transaction_id"
	FieldWalletID      = "wallet_id"
	FieldBillID        = "bill_id"
	FieldAmountCents   = "amount_cents"
	FieldCategory      = "category"
	FieldPeriod        = "period"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentRegistry = "registry"
	ComponentStats    = "stats"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentExport   = "export"
)
