package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/xraph/auditledger/id"
	"github.com/xraph/auditledger/payment"
	"github.com/xraph/auditledger/report"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onReportCreated     []OnReportCreated
	onReauditConsumed   []OnReauditConsumed
	onVisibilityChanged []OnVisibilityChanged
	onReportDeleted     []OnReportDeleted
	onPaymentConfirmed  []OnPaymentConfirmed
	onSubmissionFailed  []OnSubmissionFailed
	onPersistenceFailed []OnPersistenceFailed
	exporters           map[string]ReportExporter
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:    slog.Default(),
		timeout:   5 * time.Second,
		exporters: make(map[string]ReportExporter),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout bounds each hook call (default: 5s).
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnReportCreated); ok {
		r.onReportCreated = append(r.onReportCreated, v)
	}
	if v, ok := p.(OnReauditConsumed); ok {
		r.onReauditConsumed = append(r.onReauditConsumed, v)
	}
	if v, ok := p.(OnVisibilityChanged); ok {
		r.onVisibilityChanged = append(r.onVisibilityChanged, v)
	}
	if v, ok := p.(OnReportDeleted); ok {
		r.onReportDeleted = append(r.onReportDeleted, v)
	}
	if v, ok := p.(OnPaymentConfirmed); ok {
		r.onPaymentConfirmed = append(r.onPaymentConfirmed, v)
	}
	if v, ok := p.(OnSubmissionFailed); ok {
		r.onSubmissionFailed = append(r.onSubmissionFailed, v)
	}
	if v, ok := p.(OnPersistenceFailed); ok {
		r.onPersistenceFailed = append(r.onPersistenceFailed, v)
	}
	if v, ok := p.(ReportExporter); ok {
		r.exporters[v.Format()] = v
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnReportCreated)(nil)).Elem(), "OnReportCreated")
	checkInterface(reflect.TypeOf((*OnReauditConsumed)(nil)).Elem(), "OnReauditConsumed")
	checkInterface(reflect.TypeOf((*OnVisibilityChanged)(nil)).Elem(), "OnVisibilityChanged")
	checkInterface(reflect.TypeOf((*OnReportDeleted)(nil)).Elem(), "OnReportDeleted")
	checkInterface(reflect.TypeOf((*OnPaymentConfirmed)(nil)).Elem(), "OnPaymentConfirmed")
	checkInterface(reflect.TypeOf((*OnSubmissionFailed)(nil)).Elem(), "OnSubmissionFailed")
	checkInterface(reflect.TypeOf((*OnPersistenceFailed)(nil)).Elem(), "OnPersistenceFailed")
	checkInterface(reflect.TypeOf((*ReportExporter)(nil)).Elem(), "ReportExporter")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// GetExporter returns the exporter for format, or nil.
func (r *Registry) GetExporter(format string) ReportExporter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exporters[format]
}

// ExportFormats lists the registered export formats in sorted order.
func (r *Registry) ExportFormats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]string, 0, len(r.exporters))
	for f := range r.exporters {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitReportCreated emits a report created event.
func (r *Registry) EmitReportCreated(ctx context.Context, rep *report.ServiceReport) {
	r.mu.RLock()
	plugins := r.onReportCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReportCreated(ctx, rep)
		}); err != nil {
			r.logger.Warn("plugin OnReportCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitReauditConsumed emits a re-audit consumed event.
func (r *Registry) EmitReauditConsumed(ctx context.Context, parent *report.ServiceReport, remaining int) {
	r.mu.RLock()
	plugins := r.onReauditConsumed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReauditConsumed(ctx, parent, remaining)
		}); err != nil {
			r.logger.Warn("plugin OnReauditConsumed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitVisibilityChanged emits a visibility changed event.
func (r *Registry) EmitVisibilityChanged(ctx context.Context, rep *report.ServiceReport) {
	r.mu.RLock()
	plugins := r.onVisibilityChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnVisibilityChanged(ctx, rep)
		}); err != nil {
			r.logger.Warn("plugin OnVisibilityChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitReportDeleted emits a report deleted event.
func (r *Registry) EmitReportDeleted(ctx context.Context, reportID id.ReportID) {
	r.mu.RLock()
	plugins := r.onReportDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReportDeleted(ctx, reportID)
		}); err != nil {
			r.logger.Warn("plugin OnReportDeleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentConfirmed emits a payment confirmed event.
func (r *Registry) EmitPaymentConfirmed(ctx context.Context, receipt *payment.Receipt) {
	r.mu.RLock()
	plugins := r.onPaymentConfirmed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentConfirmed(ctx, receipt)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentConfirmed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubmissionFailed emits a submission failed event.
func (r *Registry) EmitSubmissionFailed(ctx context.Context, stage string, cause error) {
	r.mu.RLock()
	plugins := r.onSubmissionFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubmissionFailed(ctx, stage, cause)
		}); err != nil {
			r.logger.Warn("plugin OnSubmissionFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPersistenceFailed emits a persistence failed event.
func (r *Registry) EmitPersistenceFailed(ctx context.Context, op string, cause error) {
	r.mu.RLock()
	plugins := r.onPersistenceFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPersistenceFailed(ctx, op, cause)
		}); err != nil {
			r.logger.Warn("plugin OnPersistenceFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the submission pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
