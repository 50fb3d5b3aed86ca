// Package audithook bridges audit ledger lifecycle events to an audit
// trail backend.
//
// It defines a local Recorder interface so the package does not import a
// trail backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/auditledger"
	"github.com/xraph/auditledger/id"
	"github.com/xraph/auditledger/payment"
	"github.com/xraph/auditledger/plugin"
	"github.com/xraph/auditledger/report"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnReportCreated     = (*Extension)(nil)
	_ plugin.OnReauditConsumed   = (*Extension)(nil)
	_ plugin.OnVisibilityChanged = (*Extension)(nil)
	_ plugin.OnReportDeleted     = (*Extension)(nil)
	_ plugin.OnPaymentConfirmed  = (*Extension)(nil)
	_ plugin.OnSubmissionFailed  = (*Extension)(nil)
	_ plugin.OnPersistenceFailed = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// SlogRecorder writes audit events to a logger.
func SlogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		logger.InfoContext(ctx, "audit event",
			"action", evt.Action,
			"resource", evt.Resource,
			"resource_id", evt.ResourceID,
			"actor", evt.Actor,
			"outcome", evt.Outcome,
			"severity", evt.Severity,
			"reason", evt.Reason,
			"metadata", evt.Metadata,
		)
		return nil
	})
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Report lifecycle hooks
// ──────────────────────────────────────────────────

// OnReportCreated implements plugin.OnReportCreated.
func (e *Extension) OnReportCreated(ctx context.Context, r *report.ServiceReport) error {
	action := ActionReportCreated
	if r.IsReaudit {
		action = ActionReauditCreated
	}
	kv := []any{
		"service_type", string(r.ServiceType),
		"owner", r.UserID,
		"grade", r.Grade.String(),
		"findings", len(r.Findings),
	}
	if r.ReferralCode != "" {
		kv = append(kv, "referral_code", r.ReferralCode)
	}
	if r.IsReaudit {
		kv = append(kv, "parent_audit_id", r.ParentID.String())
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceReport, r.ID.String(), CategoryReport, nil, kv...)
}

// OnReauditConsumed implements plugin.OnReauditConsumed.
func (e *Extension) OnReauditConsumed(ctx context.Context, parent *report.ServiceReport, remaining int) error {
	return e.record(ctx, ActionReauditConsumed, SeverityInfo, OutcomeSuccess,
		ResourceReport, parent.ID.String(), CategoryReport, nil,
		"remaining_submissions", remaining,
	)
}

// OnVisibilityChanged implements plugin.OnVisibilityChanged.
func (e *Extension) OnVisibilityChanged(ctx context.Context, r *report.ServiceReport) error {
	return e.record(ctx, ActionVisibilityChanged, SeverityInfo, OutcomeSuccess,
		ResourceReport, r.ID.String(), CategoryAccess, nil,
		"is_public", r.IsPublic,
		"owner", r.UserID,
	)
}

// OnReportDeleted implements plugin.OnReportDeleted.
func (e *Extension) OnReportDeleted(ctx context.Context, reportID id.ReportID) error {
	return e.record(ctx, ActionReportDeleted, SeverityWarning, OutcomeSuccess,
		ResourceReport, reportID.String(), CategoryAccess, nil,
	)
}

// ──────────────────────────────────────────────────
// Submission hooks
// ──────────────────────────────────────────────────

// OnPaymentConfirmed implements plugin.OnPaymentConfirmed.
func (e *Extension) OnPaymentConfirmed(ctx context.Context, receipt *payment.Receipt) error {
	wei := "0"
	if receipt.Wei != nil {
		wei = receipt.Wei.String()
	}
	return e.record(ctx, ActionPaymentConfirmed, SeverityInfo, OutcomeSuccess,
		ResourceTransfer, receipt.ID.String(), CategoryPayment, nil,
		"tx_hash", receipt.TxHash,
		"from", receipt.From,
		"to", receipt.To,
		"wei", wei,
		"block_number", receipt.BlockNumber,
	)
}

// OnSubmissionFailed implements plugin.OnSubmissionFailed.
// Price and transfer failures are filed under the payment category.
func (e *Extension) OnSubmissionFailed(ctx context.Context, stage string, err error) error {
	category := CategoryReport
	if auditledger.IsPaymentError(err) {
		category = CategoryPayment
	}
	return e.record(ctx, ActionSubmissionFailed, SeverityWarning, OutcomeFailure,
		ResourceSubmission, "", category, err,
		"stage", stage,
		"retryable", auditledger.IsRetryable(err),
	)
}

// OnPersistenceFailed implements plugin.OnPersistenceFailed.
func (e *Extension) OnPersistenceFailed(ctx context.Context, op string, err error) error {
	return e.record(ctx, ActionPersistenceFailed, SeverityCritical, OutcomePartial,
		ResourceLedger, "", CategoryStorage, err,
		"op", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	var actor string
	if who, ok := auditledger.IdentityFrom(ctx); ok {
		actor = who.Address
		if who.IsAdmin {
			meta["admin"] = true
		}
	}

	evt := &AuditEvent{
		Action:     action,
		Actor:      actor,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
