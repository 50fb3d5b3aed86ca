package auditledger

import (
	"errors"
	"fmt"

	"github.com/xraph/auditledger/payment"
)

// Sentinel errors for common failure scenarios.
var (
	// Submission errors
	ErrNotAuthenticated    = errors.New("auditledger: no identity bound to request")
	ErrMissingFields       = errors.New("auditledger: required fields missing")
	ErrPriceUnavailable    = errors.New("auditledger: price unavailable (exchange rate unknown)")
	ErrPaymentFailed       = errors.New("auditledger: payment failed")
	ErrAnalysisUnavailable = errors.New("auditledger: analysis unavailable")
	ErrReauditNotAllowed   = errors.New("auditledger: re-audit not allowed")

	// General errors
	ErrNotFound     = errors.New("auditledger: not found")
	ErrInvalidInput = errors.New("auditledger: invalid input")
	ErrForbidden    = errors.New("auditledger: forbidden")

	// Store errors
	ErrPersistenceFailed = errors.New("auditledger: persistence failed")
	ErrCorruptState      = errors.New("auditledger: stored state is corrupt")
	ErrStoreClosed       = errors.New("auditledger: store is closed")
	ErrLockNotObtained   = errors.New("auditledger: ledger lock not obtained")
	ErrMigrationFailed   = errors.New("auditledger: migration failed")
)

// Stage names a step of the submission pipeline.
type Stage string

const (
	StageValidating      Stage = "validating"
	StageAwaitingPayment Stage = "awaiting_payment"
	StageAnalyzing       Stage = "analyzing_remote"
	StagePersisting      Stage = "persisting"
	StageDone            Stage = "done"
)

// SubmissionError is returned by Submit. Stage is where the pipeline
// stopped. Receipt is set once a transfer was sent, so the caller can tell
// the requester its hash; it is unconfirmed when the payment stage failed.
type SubmissionError struct {
	Stage   Stage
	Receipt *payment.Receipt
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Receipt != nil {
		return fmt.Sprintf("auditledger: submission failed at %s after transfer %s: %v", e.Stage, e.Receipt.TxHash, e.Err)
	}
	return fmt.Sprintf("auditledger: submission failed at %s: %v", e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PaidWithoutRecord reports whether funds moved but no record exists. A
// persistence failure still leaves the record in the in-memory ledger.
func (e *SubmissionError) PaidWithoutRecord() bool {
	return e.Receipt.Confirmed() && !errors.Is(e.Err, ErrPersistenceFailed)
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("auditledger: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPaymentError returns true if the error concerns the price or the transfer.
func IsPaymentError(err error) bool {
	return errors.Is(err, ErrPriceUnavailable) ||
		errors.Is(err, ErrPaymentFailed)
}

// IsRetryable returns true if the caller may resubmit without changes.
// Nothing is retried automatically.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPriceUnavailable) ||
		errors.Is(err, ErrAnalysisUnavailable) ||
		errors.Is(err, ErrLockNotObtained)
}
