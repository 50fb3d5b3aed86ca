package auditledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/auditledger/analysis"
	"github.com/xraph/auditledger/id"
	"github.com/xraph/auditledger/payment"
	"github.com/xraph/auditledger/pricing"
	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/service"
	"github.com/xraph/auditledger/types"
)

// Submission is a request for one service.
type Submission struct {
	ServiceType  service.Type      `json:"service_type"`
	Details      map[string]string `json:"details"`
	ReferralCode string            `json:"referral_code,omitempty"`
	// ParentID makes the submission a re-audit of an existing root record.
	ParentID id.ReportID `json:"parent_audit_id,omitzero"`
}

// IsReaudit reports whether a parent record was named.
func (s Submission) IsReaudit() bool { return !s.ParentID.IsNil() }

// Submit runs a submission through validation, payment, analysis and
// persistence. Administrators and re-audits skip payment.
//
// On ErrPersistenceFailed the record is returned together with the error:
// it exists in the in-memory ledger but may not have reached the store.
func (l *Ledger) Submit(ctx context.Context, sub Submission) (*report.ServiceReport, error) {
	sid := id.NewSubmissionID()
	log := l.logger.With("submission_id", sid.String(), "service_type", sub.ServiceType)

	// Validating
	log.Debug("submission stage", "stage", StageValidating)
	who, ok := IdentityFrom(ctx)
	if !ok {
		return nil, l.fail(ctx, StageValidating, nil, ErrNotAuthenticated)
	}

	def, err := l.catalog.Lookup(sub.ServiceType)
	if err != nil {
		return nil, l.fail(ctx, StageValidating, nil, fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}

	details := def.Normalize(sub.Details)
	if err := def.Validate(details); err != nil {
		return nil, l.fail(ctx, StageValidating, nil, classifyValidation(err))
	}

	if sub.IsReaudit() {
		if err := l.checkParent(who, def, sub.ParentID); err != nil {
			return nil, l.fail(ctx, StageValidating, nil, err)
		}
	}

	// AwaitingPayment
	var (
		receipt  *payment.Receipt
		referral string
	)
	if who.IsAdmin || sub.IsReaudit() {
		quote := pricing.Waive(def)
		log.Debug("payment waived",
			"admin", who.IsAdmin,
			"reaudit", sub.IsReaudit(),
			"due", quote.Due.String(),
		)
	} else {
		log.Debug("submission stage", "stage", StageAwaitingPayment)
		code := strings.TrimSpace(sub.ReferralCode)
		quote := pricing.ComputePrice(def, code)
		receipt, err = l.pay(ctx, who, quote)
		if err != nil {
			return nil, l.fail(ctx, StageAwaitingPayment, receipt, err)
		}
		l.plugins.EmitPaymentConfirmed(ctx, receipt)
		log.Info("payment confirmed",
			"tx_hash", receipt.TxHash,
			"due", quote.Due.String(),
			"referral_applied", quote.ReferralApplied,
		)
		if pricing.ValidateReferralCode(code) {
			referral = code
		}
	}

	// AnalyzingRemote
	log.Debug("submission stage", "stage", StageAnalyzing)
	result, err := l.analyze(ctx, def, details)
	if err != nil {
		return nil, l.fail(ctx, StageAnalyzing, receipt, err)
	}

	// Persisting
	log.Debug("submission stage", "stage", StagePersisting)
	rec := &report.ServiceReport{
		Entity:               types.NewEntity(),
		ID:                   id.NewReportID(),
		UserID:               who.Address,
		ServiceType:          def.Type,
		ProjectName:          details[service.FieldProjectName],
		Details:              details,
		Grade:                result.Grade,
		Summary:              result.Summary,
		Findings:             result.Findings,
		IsPublic:             true,
		ReferralCode:         referral,
		IsReaudit:            sub.IsReaudit(),
		ParentID:             sub.ParentID,
		RemainingSubmissions: pricing.InitialAllowance(def, sub.IsReaudit()),
	}

	out, err := l.persistNew(ctx, rec)
	if err != nil {
		serr := l.fail(ctx, StagePersisting, receipt, err)
		return out, serr
	}

	log.Info("report created",
		"stage", StageDone,
		"report_id", rec.ID.String(),
		"grade", rec.Grade.String(),
		"findings", len(rec.Findings),
	)
	return out, nil
}

// checkParent rejects a re-audit before any funds move.
func (l *Ledger) checkParent(who Identity, def service.Definition, parentID id.ReportID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, parent := l.findLocked(parentID)
	if parent == nil {
		return fmt.Errorf("%w: parent %s not found", ErrReauditNotAllowed, parentID)
	}
	if parent.ServiceType != def.Type {
		return fmt.Errorf("%w: parent is a %s report", ErrReauditNotAllowed, parent.ServiceType)
	}
	if !who.Owns(parent.UserID) {
		return fmt.Errorf("%w: parent belongs to another address", ErrReauditNotAllowed)
	}
	if err := pricing.CheckReaudit(parent); err != nil {
		return fmt.Errorf("%w: %w", ErrReauditNotAllowed, err)
	}
	return nil
}

// pay converts the due amount and transfers it to the recipient. On a
// failed transfer the payer's unconfirmed receipt is passed through.
func (l *Ledger) pay(ctx context.Context, who Identity, quote pricing.Quote) (*payment.Receipt, error) {
	native, ok := pricing.ConvertToNative(quote.Due, l.Rate())
	if !ok {
		return nil, ErrPriceUnavailable
	}
	if l.payer == nil {
		return nil, fmt.Errorf("%w: no payer configured", ErrPaymentFailed)
	}

	receipt, err := l.payer.Pay(ctx, payment.Transfer{
		From: who.Address,
		To:   l.recipient,
		Wei:  pricing.ToWei(native),
	})
	if err != nil {
		// receipt may hold the hash of a sent but unconfirmed transfer.
		return receipt, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	return receipt, nil
}

// analyze calls the provider and checks the response against the
// category's vocabulary.
func (l *Ledger) analyze(ctx context.Context, def service.Definition, details map[string]string) (*analysis.Validated, error) {
	if l.analyst == nil {
		return nil, fmt.Errorf("%w: no analysis provider configured", ErrAnalysisUnavailable)
	}
	res, err := l.analyst.Analyze(ctx, analysis.Request{ServiceType: def.Type, Details: details})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
	}
	v, err := analysis.ValidateResult(def.Category, res)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
	}
	return v, nil
}

// persistNew appends rec and, for a re-audit, decrements the parent in the
// same save. The allowance is re-checked here because another submission
// may have consumed it since checkParent.
func (l *Ledger) persistNew(ctx context.Context, rec *report.ServiceReport) (*report.ServiceReport, error) {
	release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}

	var parent *report.ServiceReport
	if rec.IsReaudit {
		_, parent = l.findLocked(rec.ParentID)
		if parent == nil {
			release()
			return nil, fmt.Errorf("%w: parent %s not found", ErrReauditNotAllowed, rec.ParentID)
		}
		if err := pricing.ConsumeReaudit(parent); err != nil {
			release()
			return nil, fmt.Errorf("%w: %w", ErrReauditNotAllowed, err)
		}
	}

	l.records = append(l.records, rec)
	saveErr := l.saveLocked(ctx, "submit")

	out := rec.Clone()
	var parentSnap *report.ServiceReport
	if parent != nil {
		parentSnap = parent.Clone()
	}
	release()

	if saveErr != nil {
		l.plugins.EmitPersistenceFailed(ctx, "submit", saveErr)
		return out, saveErr
	}

	l.plugins.EmitReportCreated(ctx, out)
	if parentSnap != nil {
		remaining, _ := parentSnap.Remaining()
		l.plugins.EmitReauditConsumed(ctx, parentSnap, remaining)
	}
	return out, nil
}

// fail wraps err with the stage and notifies plugins.
func (l *Ledger) fail(ctx context.Context, stage Stage, receipt *payment.Receipt, err error) error {
	serr := &SubmissionError{Stage: stage, Receipt: receipt, Err: err}

	attrs := []any{"stage", stage, "error", err}
	if receipt != nil {
		attrs = append(attrs, "tx_hash", receipt.TxHash, "paid_without_record", serr.PaidWithoutRecord())
	}
	if serr.PaidWithoutRecord() {
		l.logger.Error("submission failed after payment", attrs...)
	} else {
		l.logger.Warn("submission failed", attrs...)
	}

	l.plugins.EmitSubmissionFailed(ctx, string(stage), err)
	return serr
}

// classifyValidation maps catalog validation errors to ledger sentinels.
func classifyValidation(err error) error {
	var missing *service.MissingFieldsError
	if errors.As(err, &missing) {
		return fmt.Errorf("%w: %w", ErrMissingFields, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
