// Package report defines the persisted ServiceReport record and its parts.
package report

import (
	"fmt"
	"maps"
	"slices"

	"github.com/xraph/auditledger/id"
	"github.com/xraph/auditledger/service"
	"github.com/xraph/auditledger/types"
)

type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// ParseSeverity accepts the four canonical severity names.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(s); sev {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return sev, nil
	default:
		return "", fmt.Errorf("report: unknown severity %q", s)
	}
}

// Rank orders severities: Critical > High > Medium > Low. Unknown is 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

type Finding struct {
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

type ServiceReport struct {
	types.Entity
	ID                   id.ReportID       `json:"id"`
	UserID               string            `json:"user_id"`
	ServiceType          service.Type      `json:"service_type"`
	ProjectName          string            `json:"project_name"`
	Details              map[string]string `json:"details"`
	Grade                Grade             `json:"grade"`
	Summary              string            `json:"summary"`
	Findings             []Finding         `json:"findings"`
	IsPublic             bool              `json:"is_public"`
	ReferralCode         string            `json:"referral_code,omitempty"`
	IsReaudit            bool              `json:"is_reaudit,omitempty"`
	ParentID             id.ReportID       `json:"parent_audit_id,omitzero"`
	RemainingSubmissions *int              `json:"remaining_submissions,omitempty"`
}

// IsRoot reports whether the record was not created as a re-audit.
func (r *ServiceReport) IsRoot() bool { return !r.IsReaudit }

// Remaining returns the re-audit allowance and whether one is defined.
func (r *ServiceReport) Remaining() (int, bool) {
	if r.RemainingSubmissions == nil {
		return 0, false
	}
	return *r.RemainingSubmissions, true
}

// Clone returns a deep copy so callers never share state with the ledger.
func (r *ServiceReport) Clone() *ServiceReport {
	if r == nil {
		return nil
	}
	c := *r
	c.Details = maps.Clone(r.Details)
	c.Findings = slices.Clone(r.Findings)
	if r.RemainingSubmissions != nil {
		n := *r.RemainingSubmissions
		c.RemainingSubmissions = &n
	}
	return &c
}

// CloneAll deep-copies a slice of records.
func CloneAll(records []*ServiceReport) []*ServiceReport {
	out := make([]*ServiceReport, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// HighestSeverity returns the most severe finding level, or "" if none.
func (r *ServiceReport) HighestSeverity() Severity {
	var top Severity
	for _, f := range r.Findings {
		if f.Severity.Rank() > top.Rank() {
			top = f.Severity
		}
	}
	return top
}

// SeverityCounts tallies findings per severity.
func (r *ServiceReport) SeverityCounts() map[Severity]int {
	out := make(map[Severity]int, 4)
	for _, f := range r.Findings {
		out[f.Severity]++
	}
	return out
}
