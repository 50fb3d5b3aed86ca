// Package plugin provides an extensible plugin system for the audit ledger.
// Plugins can hook into report lifecycle events to extend functionality.
package plugin

import (
	"context"
	"io"

	"github.com/xraph/auditledger/id"
	"github.com/xraph/auditledger/payment"
	"github.com/xraph/auditledger/report"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Report lifecycle hooks
// ──────────────────────────────────────────────────

// OnReportCreated is called after a new report was appended to the ledger.
type OnReportCreated interface {
	Plugin
	OnReportCreated(ctx context.Context, r *report.ServiceReport) error
}

// OnReauditConsumed is called when a re-audit used one unit of the
// parent's allowance.
type OnReauditConsumed interface {
	Plugin
	OnReauditConsumed(ctx context.Context, parent *report.ServiceReport, remaining int) error
}

// OnVisibilityChanged is called after a report's visibility was toggled.
type OnVisibilityChanged interface {
	Plugin
	OnVisibilityChanged(ctx context.Context, r *report.ServiceReport) error
}

// OnReportDeleted is called after a report was removed.
type OnReportDeleted interface {
	Plugin
	OnReportDeleted(ctx context.Context, reportID id.ReportID) error
}

// ──────────────────────────────────────────────────
// Submission hooks
// ──────────────────────────────────────────────────

// OnPaymentConfirmed is called once a transfer was observed mined.
type OnPaymentConfirmed interface {
	Plugin
	OnPaymentConfirmed(ctx context.Context, receipt *payment.Receipt) error
}

// OnSubmissionFailed is called when a submission stops before Done.
type OnSubmissionFailed interface {
	Plugin
	OnSubmissionFailed(ctx context.Context, stage string, err error) error
}

// OnPersistenceFailed is called when the store rejects a save. The
// in-memory ledger keeps the new state.
type OnPersistenceFailed interface {
	Plugin
	OnPersistenceFailed(ctx context.Context, op string, err error) error
}

// ──────────────────────────────────────────────────
// Report exporters
// ──────────────────────────────────────────────────

// ReportExporter renders reports into a downloadable format.
type ReportExporter interface {
	Plugin
	Format() string      // "xlsx", "json", ...
	ContentType() string // MIME type of the rendered output
	Render(ctx context.Context, w io.Writer, reports []*report.ServiceReport) error
}
