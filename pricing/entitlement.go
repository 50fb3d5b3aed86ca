package pricing

import (
	"errors"

	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/service"
)

var (
	// ErrNotReauditable is returned for a parent that is itself a re-audit
	// or that never carried an allowance.
	ErrNotReauditable = errors.New("pricing: record is not eligible for re-audit")
	// ErrAllowanceExhausted is returned when the allowance is already 0.
	ErrAllowanceExhausted = errors.New("pricing: re-audit allowance exhausted")
)

// InitialAllowance returns the allowance for a new record, or nil when the
// record must not carry one (re-audits and non-eligible service types).
func InitialAllowance(def service.Definition, isReaudit bool) *int {
	if isReaudit || !def.ReauditEligible() {
		return nil
	}
	n := def.ReauditAllowance
	return &n
}

// CheckReaudit explains why parent cannot be re-audited, or returns nil.
func CheckReaudit(parent *report.ServiceReport) error {
	if parent == nil || parent.IsReaudit {
		return ErrNotReauditable
	}
	n, ok := parent.Remaining()
	if !ok {
		return ErrNotReauditable
	}
	if n <= 0 {
		return ErrAllowanceExhausted
	}
	return nil
}

// CanReaudit reports whether parent has at least one re-audit left.
func CanReaudit(parent *report.ServiceReport) bool {
	return CheckReaudit(parent) == nil
}

// ConsumeReaudit decrements the allowance by one if it is still positive.
// Callers must hold whatever lock guards parent.
func ConsumeReaudit(parent *report.ServiceReport) error {
	if err := CheckReaudit(parent); err != nil {
		return err
	}
	n := *parent.RemainingSubmissions - 1
	parent.RemainingSubmissions = &n
	return nil
}
