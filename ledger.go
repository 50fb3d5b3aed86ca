package auditledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/auditledger/analysis"
	"github.com/xraph/auditledger/payment"
	"github.com/xraph/auditledger/plugin"
	"github.com/xraph/auditledger/rates"
	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/service"
	"github.com/xraph/auditledger/store"
)

// DefaultRecipient receives every service payment unless overridden.
const DefaultRecipient = "0x51EA5875D6b7E3B517ddA9fbC1B4FE61d566BF98"

// Ledger is the request orchestrator. It owns the in-memory report
// collection and writes it through to the store after every mutation.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	catalog   *service.Catalog
	analyst   analysis.Provider
	payer     payment.Payer
	rates     *rates.Feed
	locker    store.Locker
	recipient string

	// mu serializes every read-modify-write of records.
	mu      sync.Mutex
	records []*report.ServiceReport
	// unsaved is set while records hold changes the store rejected.
	unsaved bool

	// Background workers
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Configuration
	rateRefreshInterval time.Duration
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:               s,
		plugins:             plugin.NewRegistry(),
		logger:              slog.Default(),
		catalog:             service.Default(),
		recipient:           DefaultRecipient,
		stopChan:            make(chan struct{}),
		rateRefreshInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCatalog replaces the default pricing table.
func WithCatalog(c *service.Catalog) Option {
	return func(l *Ledger) { l.catalog = c }
}

// WithAnalysisProvider sets the model boundary.
func WithAnalysisProvider(p analysis.Provider) Option {
	return func(l *Ledger) { l.analyst = p }
}

// WithPayer sets the funds-transfer boundary.
func WithPayer(p payment.Payer) Option {
	return func(l *Ledger) { l.payer = p }
}

// WithRateFeed sets the exchange-rate feed. Start refreshes it in the
// background.
func WithRateFeed(f *rates.Feed) Option {
	return func(l *Ledger) { l.rates = f }
}

// WithRateRefreshInterval sets how often the feed is refreshed (default: 5m).
func WithRateRefreshInterval(d time.Duration) Option {
	return func(l *Ledger) { l.rateRefreshInterval = d }
}

// WithRecipient overrides DefaultRecipient.
func WithRecipient(addr string) Option {
	return func(l *Ledger) { l.recipient = addr }
}

// WithLocker guards mutations with a cross-process lock. Each mutation
// then reloads the collection from the store before applying itself.
func WithLocker(lk store.Locker) Option {
	return func(l *Ledger) { l.locker = lk }
}

// Start migrates and loads the store, then begins background workers.
// A corrupt snapshot is logged and replaced by an empty ledger.
func (l *Ledger) Start(ctx context.Context) error {
	// Migrate database
	if err := l.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	records, err := l.load(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.records = records
	l.mu.Unlock()

	// Initialize plugins
	l.plugins.EmitInit(ctx, l)

	// Start exchange-rate worker
	if l.rates != nil && l.rateRefreshInterval > 0 {
		_ = l.rates.Refresh(ctx) //nolint:errcheck // logged by the feed; price stays unknown until a refresh succeeds
		l.wg.Add(1)
		go l.rateRefreshWorker(ctx)
	}

	l.logger.Info("audit ledger started",
		"records", len(records),
		"services", len(l.catalog.All()),
		"rate_refresh_interval", l.rateRefreshInterval,
		"distributed_lock", l.locker != nil,
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()

	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// Ping checks the store.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// Catalog returns the pricing table.
func (l *Ledger) Catalog() *service.Catalog { return l.catalog }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Rate returns the cached native coin price in USD.
func (l *Ledger) Rate() decimal.NullDecimal {
	if l.rates == nil {
		return decimal.NullDecimal{}
	}
	return l.rates.Current()
}

// rateRefreshWorker keeps the exchange-rate feed current.
func (l *Ledger) rateRefreshWorker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.rateRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = l.rates.Refresh(ctx) //nolint:errcheck // failures are logged by the feed
		}
	}
}

// load reads the persisted collection. Corrupt state is not fatal.
func (l *Ledger) load(ctx context.Context) ([]*report.ServiceReport, error) {
	records, err := l.store.Load(ctx)
	if errors.Is(err, ErrCorruptState) {
		l.logger.Warn("stored ledger is corrupt, starting empty", "error", err)
		return []*report.ServiceReport{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auditledger: load: %w", err)
	}
	return records, nil
}

// acquire takes the in-process mutex and, when configured, the
// cross-process lock. Under the cross-process lock the collection is
// reloaded so writes by other processes are not lost, unless the last save
// failed: then the in-memory collection is authoritative until a save
// succeeds.
func (l *Ledger) acquire(ctx context.Context) (func(), error) {
	l.mu.Lock()
	if l.locker == nil {
		return l.mu.Unlock, nil
	}

	lk, err := l.locker.Obtain(ctx)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	release := func() {
		if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
			l.logger.Warn("failed to release ledger lock", "error", err)
		}
		l.mu.Unlock()
	}

	if l.unsaved {
		l.logger.Warn("skipping ledger reload, unsaved changes in memory", "records", len(l.records))
		return release, nil
	}

	records, err := l.store.Load(ctx)
	switch {
	case errors.Is(err, ErrCorruptState):
		l.logger.Warn("stored ledger is corrupt, keeping in-memory state", "error", err)
	case err != nil:
		release()
		return nil, fmt.Errorf("auditledger: reload: %w", err)
	default:
		l.records = records
	}
	return release, nil
}

// saveLocked writes the whole collection. Callers hold mu.
func (l *Ledger) saveLocked(ctx context.Context, op string) error {
	start := time.Now()
	if err := l.store.SaveAll(ctx, l.records); err != nil {
		l.unsaved = true
		l.logger.Error("failed to persist ledger",
			"op", op,
			"records", len(l.records),
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	l.unsaved = false
	l.logger.Debug("persisted ledger",
		"op", op,
		"records", len(l.records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// findLocked returns the live record for id, or nil. Callers hold mu.
func (l *Ledger) findLocked(reportID ID) (int, *report.ServiceReport) {
	for i, r := range l.records {
		if r.ID.String() == reportID.String() {
			return i, r
		}
	}
	return -1, nil
}
