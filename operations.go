package auditledger

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xraph/auditledger/id"
	"github.com/xraph/auditledger/pricing"
	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/service"
)

// ──────────────────────────────────────────────────
// Mutations
// ──────────────────────────────────────────────────

// ToggleVisibility flips is_public on one report and persists the
// collection. On ErrPersistenceFailed the toggled report is returned with
// the error and the in-memory ledger keeps the change.
func (l *Ledger) ToggleVisibility(ctx context.Context, reportID id.ReportID) (*report.ServiceReport, error) {
	release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}

	_, r := l.findLocked(reportID)
	if r == nil {
		release()
		return nil, fmt.Errorf("%w: report %s", ErrNotFound, reportID)
	}
	r.IsPublic = !r.IsPublic
	r.Touch()

	saveErr := l.saveLocked(ctx, "toggle_visibility")
	out := r.Clone()
	release()

	if saveErr != nil {
		l.plugins.EmitPersistenceFailed(ctx, "toggle_visibility", saveErr)
		return out, saveErr
	}

	l.logger.Info("report visibility changed",
		"report_id", reportID.String(),
		"is_public", out.IsPublic,
	)
	l.plugins.EmitVisibilityChanged(ctx, out)
	return out, nil
}

// Delete removes one report and persists the collection. Re-audits that
// point at it keep their parent reference.
func (l *Ledger) Delete(ctx context.Context, reportID id.ReportID) error {
	release, err := l.acquire(ctx)
	if err != nil {
		return err
	}

	i, _ := l.findLocked(reportID)
	if i < 0 {
		release()
		return fmt.Errorf("%w: report %s", ErrNotFound, reportID)
	}
	l.records = slices.Delete(l.records, i, i+1)

	saveErr := l.saveLocked(ctx, "delete")
	release()

	if saveErr != nil {
		l.plugins.EmitPersistenceFailed(ctx, "delete", saveErr)
		return saveErr
	}

	l.logger.Info("report deleted", "report_id", reportID.String())
	l.plugins.EmitReportDeleted(ctx, reportID)
	return nil
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// Get returns a copy of one report.
func (l *Ledger) Get(_ context.Context, reportID id.ReportID) (*report.ServiceReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, r := l.findLocked(reportID)
	if r == nil {
		return nil, fmt.Errorf("%w: report %s", ErrNotFound, reportID)
	}
	return r.Clone(), nil
}

// Records returns copies of all reports in storage (insertion) order.
func (l *Ledger) Records(_ context.Context) []*report.ServiceReport {
	l.mu.Lock()
	defer l.mu.Unlock()
	return report.CloneAll(l.records)
}

// Len returns the number of reports.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// PriceQuote is a fiat quote plus its native-coin equivalent at the
// cached rate. Native is invalid when the rate is unknown.
type PriceQuote struct {
	pricing.Quote
	Rate   decimal.NullDecimal `json:"rate_usd"`
	Native decimal.NullDecimal `json:"native_amount"`
}

// Quote prices a service for an optional referral code without side
// effects.
func (l *Ledger) Quote(serviceType service.Type, referralCode string) (*PriceQuote, error) {
	def, err := l.catalog.Lookup(serviceType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	q := &PriceQuote{Quote: pricing.ComputePrice(def, strings.TrimSpace(referralCode)), Rate: l.Rate()}
	if native, ok := pricing.ConvertToNative(q.Due, q.Rate); ok {
		q.Native = decimal.NewNullDecimal(native)
	}
	return q, nil
}

// Earnings sums referral payouts for referrer across all reports.
func (l *Ledger) Earnings(_ context.Context, referrer string) pricing.Earnings {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := pricing.ComputeReferralEarnings(l.catalog, l.records, referrer)
	e.Records = report.CloneAll(e.Records)
	return e
}
