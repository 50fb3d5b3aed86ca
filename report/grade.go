package report

import (
	"fmt"

	"github.com/xraph/auditledger/service"
)

type AuditGrade string

const (
	GradeA AuditGrade = "A"
	GradeB AuditGrade = "B"
	GradeC AuditGrade = "C"
	GradeD AuditGrade = "D"
)

type KYCStatus string

const (
	KYCVerified    KYCStatus = "Verified"
	KYCNeedsReview KYCStatus = "Needs Review"
	KYCRejected    KYCStatus = "Rejected"
)

// Grade is the outcome of an analysis: a letter grade for audit services
// or a verification status for KYC services. The zero value is unset.
type Grade struct {
	category service.Category
	audit    AuditGrade
	kyc      KYCStatus
}

// AuditResult wraps a letter grade.
func AuditResult(g AuditGrade) Grade {
	return Grade{category: service.CategoryAudit, audit: g}
}

// KYCResult wraps a verification status.
func KYCResult(s KYCStatus) Grade {
	return Grade{category: service.CategoryKYC, kyc: s}
}

// ParseGrade accepts only the vocabulary of the given category.
func ParseGrade(cat service.Category, s string) (Grade, error) {
	switch cat {
	case service.CategoryAudit:
		switch g := AuditGrade(s); g {
		case GradeA, GradeB, GradeC, GradeD:
			return AuditResult(g), nil
		}
	case service.CategoryKYC:
		switch st := KYCStatus(s); st {
		case KYCVerified, KYCNeedsReview, KYCRejected:
			return KYCResult(st), nil
		}
	}
	return Grade{}, fmt.Errorf("report: %q is not a valid %s grade", s, cat)
}

// Category reports which vocabulary the grade belongs to.
func (g Grade) Category() service.Category { return g.category }

// Audit returns the letter grade when the grade is an audit result.
func (g Grade) Audit() (AuditGrade, bool) {
	return g.audit, g.category == service.CategoryAudit
}

// KYC returns the status when the grade is a KYC result.
func (g Grade) KYC() (KYCStatus, bool) {
	return g.kyc, g.category == service.CategoryKYC
}

// IsZero reports whether the grade is unset.
func (g Grade) IsZero() bool { return g.category == "" }

func (g Grade) String() string {
	switch g.category {
	case service.CategoryAudit:
		return string(g.audit)
	case service.CategoryKYC:
		return string(g.kyc)
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (g Grade) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The two vocabularies
// are disjoint, so the category is recovered from the value.
func (g *Grade) UnmarshalText(data []byte) error {
	s := string(data)
	if s == "" {
		*g = Grade{}
		return nil
	}
	if parsed, err := ParseGrade(service.CategoryAudit, s); err == nil {
		*g = parsed
		return nil
	}
	parsed, err := ParseGrade(service.CategoryKYC, s)
	if err != nil {
		return fmt.Errorf("report: unknown grade %q", s)
	}
	*g = parsed
	return nil
}
