// Package observability provides a metrics extension for the audit ledger
// that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"strings"
	"sync"

	"github.com/xraph/auditledger/id"
	"github.com/xraph/auditledger/payment"
	"github.com/xraph/auditledger/plugin"
	"github.com/xraph/auditledger/pricing"
	"github.com/xraph/auditledger/report"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnReportCreated     = (*MetricsExtension)(nil)
	_ plugin.OnReauditConsumed   = (*MetricsExtension)(nil)
	_ plugin.OnVisibilityChanged = (*MetricsExtension)(nil)
	_ plugin.OnReportDeleted     = (*MetricsExtension)(nil)
	_ plugin.OnPaymentConfirmed  = (*MetricsExtension)(nil)
	_ plugin.OnSubmissionFailed  = (*MetricsExtension)(nil)
	_ plugin.OnPersistenceFailed = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a ledger plugin to track submissions and payments.
type MetricsExtension struct {
	factory MetricFactory

	// Report metrics
	ReportsCreated    Counter
	ReauditsCreated   Counter
	ReauditsConsumed  Counter
	VisibilityChanged Counter
	ReportsDeleted    Counter
	FindingsPerReport Histogram
	CriticalFindings  Counter
	ReauditsRemaining Histogram

	// Payment metrics
	PaymentsConfirmed Counter
	PaymentNative     Histogram

	// Error metrics
	SubmissionsFailed Counter
	StoreErrors       Counter

	mu      sync.Mutex
	byStage map[string]Counter
	byType  map[string]Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Report metrics
		ReportsCreated:    factory.Counter("auditledger.report.created"),
		ReauditsCreated:   factory.Counter("auditledger.report.reaudit.created"),
		ReauditsConsumed:  factory.Counter("auditledger.reaudit.consumed"),
		VisibilityChanged: factory.Counter("auditledger.report.visibility_changed"),
		ReportsDeleted:    factory.Counter("auditledger.report.deleted"),
		FindingsPerReport: factory.Histogram("auditledger.report.findings"),
		CriticalFindings:  factory.Counter("auditledger.report.findings.critical"),
		ReauditsRemaining: factory.Histogram("auditledger.reaudit.remaining"),

		// Payment metrics
		PaymentsConfirmed: factory.Counter("auditledger.payment.confirmed"),
		PaymentNative:     factory.Histogram("auditledger.payment.native_amount"),

		// Error metrics
		SubmissionsFailed: factory.Counter("auditledger.submission.failed"),
		StoreErrors:       factory.Counter("auditledger.store.errors"),

		byStage: make(map[string]Counter),
		byType:  make(map[string]Counter),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Report lifecycle hooks
// ──────────────────────────────────────────────────

// OnReportCreated implements plugin.OnReportCreated.
func (m *MetricsExtension) OnReportCreated(_ context.Context, r *report.ServiceReport) error {
	m.ReportsCreated.Inc()
	if r.IsReaudit {
		m.ReauditsCreated.Inc()
	}
	m.labeled(m.byType, "auditledger.report.created.", string(r.ServiceType)).Inc()
	m.FindingsPerReport.Observe(float64(len(r.Findings)))
	if n := r.SeverityCounts()[report.SeverityCritical]; n > 0 {
		m.CriticalFindings.Add(float64(n))
	}
	return nil
}

// OnReauditConsumed implements plugin.OnReauditConsumed.
func (m *MetricsExtension) OnReauditConsumed(_ context.Context, _ *report.ServiceReport, remaining int) error {
	m.ReauditsConsumed.Inc()
	m.ReauditsRemaining.Observe(float64(remaining))
	return nil
}

// OnVisibilityChanged implements plugin.OnVisibilityChanged.
func (m *MetricsExtension) OnVisibilityChanged(_ context.Context, _ *report.ServiceReport) error {
	m.VisibilityChanged.Inc()
	return nil
}

// OnReportDeleted implements plugin.OnReportDeleted.
func (m *MetricsExtension) OnReportDeleted(_ context.Context, _ id.ReportID) error {
	m.ReportsDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Submission hooks
// ──────────────────────────────────────────────────

// OnPaymentConfirmed implements plugin.OnPaymentConfirmed.
func (m *MetricsExtension) OnPaymentConfirmed(_ context.Context, receipt *payment.Receipt) error {
	m.PaymentsConfirmed.Inc()
	if receipt.Wei != nil {
		native, _ := pricing.FromWei(receipt.Wei).Float64()
		m.PaymentNative.Observe(native)
	}
	return nil
}

// OnSubmissionFailed implements plugin.OnSubmissionFailed.
func (m *MetricsExtension) OnSubmissionFailed(_ context.Context, stage string, _ error) error {
	m.SubmissionsFailed.Inc()
	m.labeled(m.byStage, "auditledger.submission.failed.", stage).Inc()
	return nil
}

// OnPersistenceFailed implements plugin.OnPersistenceFailed.
func (m *MetricsExtension) OnPersistenceFailed(_ context.Context, _ string, _ error) error {
	m.StoreErrors.Inc()
	return nil
}

// labeled returns the counter for prefix+label, creating it on first use.
func (m *MetricsExtension) labeled(set map[string]Counter, prefix, label string) Counter {
	label = strings.ToLower(label)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := set[label]
	if !ok {
		c = m.factory.Counter(prefix + label)
		set[label] = c
	}
	return c
}
