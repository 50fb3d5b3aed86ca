package audithook

// Action constants for audit events.
const (
	// Report actions
	ActionReportCreated     = "report.created"
	ActionReauditCreated    = "report.reaudit_created"
	ActionReauditConsumed   = "reaudit.consumed"
	ActionVisibilityChanged = "report.visibility_changed"
	ActionReportDeleted     = "report.deleted"

	// Submission actions
	ActionPaymentConfirmed  = "payment.confirmed"
	ActionSubmissionFailed  = "submission.failed"
	ActionPersistenceFailed = "store.persistence_failed"
)

// Resource constants for audit events.
const (
	ResourceReport     = "report"
	ResourceTransfer   = "transfer"
	ResourceSubmission = "submission"
	ResourceLedger     = "ledger"
)

// Category constants for audit events.
const (
	CategoryReport  = "report"
	CategoryAccess  = "access"
	CategoryPayment = "payment"
	CategoryStorage = "storage"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
