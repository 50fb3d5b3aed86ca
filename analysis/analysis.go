// Package analysis defines the boundary to the generative model that turns
// a service request into a graded security report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/service"
)

// ErrInvalidResult is returned when a response does not match the schema.
var ErrInvalidResult = errors.New("analysis: response does not match schema")

// Request is the analysis input. The JSON shape matches the /api/audit
// proxy body.
type Request struct {
	ServiceType service.Type      `json:"serviceType"`
	Details     map[string]string `json:"details"`
}

// Result is the raw model output, before validation.
type Result struct {
	Grade   string `json:"grade"`
	Summary string `json:"summary"`
	// Findings is nil when the response omitted the array or sent null.
	// A clean report carries an empty, non-nil slice.
	Findings []report.Finding `json:"findings"`
}

// Provider produces an analysis for a request.
type Provider interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (*Result, error)

// Analyze implements Provider.
func (f ProviderFunc) Analyze(ctx context.Context, req Request) (*Result, error) { return f(ctx, req) }

// Validated is a result whose grade and findings passed the schema checks.
type Validated struct {
	Grade    report.Grade
	Summary  string
	Findings []report.Finding
}

// ValidateResult checks res against the vocabulary of cat. The findings
// array is required; each finding must carry a known severity, a title, a
// description and a recommendation.
func ValidateResult(cat service.Category, res *Result) (*Validated, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidResult)
	}

	grade, err := report.ParseGrade(cat, strings.TrimSpace(res.Grade))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	summary := strings.TrimSpace(res.Summary)
	if summary == "" {
		return nil, fmt.Errorf("%w: summary is empty", ErrInvalidResult)
	}

	if res.Findings == nil {
		return nil, fmt.Errorf("%w: findings missing", ErrInvalidResult)
	}

	findings := make([]report.Finding, 0, len(res.Findings))
	for i, f := range res.Findings {
		sev, err := report.ParseSeverity(string(f.Severity))
		if err != nil {
			return nil, fmt.Errorf("%w: finding %d: %v", ErrInvalidResult, i, err)
		}
		for field, v := range map[string]string{
			"title":          f.Title,
			"description":    f.Description,
			"recommendation": f.Recommendation,
		} {
			if strings.TrimSpace(v) == "" {
				return nil, fmt.Errorf("%w: finding %d has no %s", ErrInvalidResult, i, field)
			}
		}
		f.Severity = sev
		findings = append(findings, f)
	}

	return &Validated{Grade: grade, Summary: summary, Findings: findings}, nil
}
