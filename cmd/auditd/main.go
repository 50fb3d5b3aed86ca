// Command auditd serves the audit ledger over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/xraph/auditledger"
	"github.com/xraph/auditledger/analysis"
	"github.com/xraph/auditledger/analysis/gemini"
	"github.com/xraph/auditledger/analysis/remote"
	"github.com/xraph/auditledger/api"
	audithook "github.com/xraph/auditledger/audit_hook"
	"github.com/xraph/auditledger/export"
	"github.com/xraph/auditledger/internal/config"
	"github.com/xraph/auditledger/observability"
	obsprom "github.com/xraph/auditledger/observability/prometheus"
	"github.com/xraph/auditledger/payment/evm"
	"github.com/xraph/auditledger/rates"
	"github.com/xraph/auditledger/store"
	"github.com/xraph/auditledger/store/file"
	"github.com/xraph/auditledger/store/memory"
	redisstore "github.com/xraph/auditledger/store/redis"
)

func main() {
	configPath := flag.String("config", "auditd.yaml", "path to the YAML configuration")
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "auditd: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("auditd exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, locker, err := openStore(cfg.Store)
	if err != nil {
		return err
	}

	provider, err := openProvider(ctx, cfg.Analysis, logger)
	if err != nil {
		return err
	}

	payer, err := evm.Dial(ctx, cfg.Payment.RPCURL,
		evm.WithConfirmTimeout(config.Duration(cfg.Payment.ConfirmTimeout, 3*time.Minute)),
		evm.WithPollInterval(config.Duration(cfg.Payment.PollInterval, 2*time.Second)),
		evm.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}

	feed, interval, err := openFeed(cfg.Rates, logger)
	if err != nil {
		return err
	}

	opts := []auditledger.Option{
		auditledger.WithLogger(logger),
		auditledger.WithAnalysisProvider(provider),
		auditledger.WithPayer(payer),
		auditledger.WithRateFeed(feed),
		auditledger.WithRateRefreshInterval(interval),
		auditledger.WithRecipient(cfg.Payment.Recipient),
		auditledger.WithPlugin(export.JSONExporter{}),
		auditledger.WithPlugin(export.XLSXExporter{}),
		auditledger.WithPlugin(audithook.New(audithook.SlogRecorder(logger), audithook.WithLogger(logger))),
		auditledger.WithPlugin(observability.NewMetricsExtension(obsprom.New(nil))),
	}
	if locker != nil {
		opts = append(opts, auditledger.WithLocker(locker))
	}

	l := auditledger.New(s, opts...)
	if err := l.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := l.Stop(); err != nil {
			logger.Warn("ledger stop", "error", err)
		}
	}()

	apiOpts := []api.Option{
		api.WithAdmins(auditledger.NewAdminSet(cfg.Admins...)),
		api.WithLogger(logger),
	}
	if cfg.Analysis.Proxy {
		apiOpts = append(apiOpts, api.WithAnalysisProxy(provider))
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", api.New(l, apiOpts...).Routes())

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("listening", "addr", cfg.Listen, "store", cfg.Store.Driver, "analysis", cfg.Analysis.Provider)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	cancel()
	return nil
}

func newLogger(c config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, hopts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, hopts))
}

func openStore(c config.StoreConfig) (store.Store, store.Locker, error) {
	switch c.Driver {
	case config.StoreMemory:
		return memory.New(), nil, nil
	case config.StoreFile:
		return file.New(c.Path), nil, nil
	case config.StoreRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		var ropts []redisstore.Option
		if c.Key != "" {
			ropts = append(ropts, redisstore.WithKey(c.Key))
		}
		s := redisstore.New(rdb, ropts...)
		if !c.Lock {
			return s, nil, nil
		}
		return s, s.NewLocker(config.Duration(c.LockTTL, 30*time.Second), 100*time.Millisecond), nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", c.Driver)
	}
}

func openProvider(ctx context.Context, c config.AnalysisConfig, logger *slog.Logger) (analysis.Provider, error) {
	switch c.Provider {
	case config.ProviderGemini:
		gopts := []gemini.Option{gemini.WithLogger(logger)}
		if c.Model != "" {
			gopts = append(gopts, gemini.WithModel(c.Model))
		}
		if c.Temperature > 0 {
			gopts = append(gopts, gemini.WithTemperature(c.Temperature))
		}
		p, err := gemini.New(ctx, c.APIKey, c.BaseURL, gopts...)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return p, nil
	case config.ProviderRemote:
		return remote.New(c.BaseURL, remote.WithHTTPClient(&http.Client{
			Timeout: config.Duration(c.Timeout, 120*time.Second),
		})), nil
	default:
		return nil, fmt.Errorf("unknown analysis provider %q", c.Provider)
	}
}

// openFeed returns the rate feed and its refresh interval. A fixed rate
// is never refreshed.
func openFeed(c config.RatesConfig, logger *slog.Logger) (*rates.Feed, time.Duration, error) {
	if c.FixedUSD != "" {
		rate, err := decimal.NewFromString(c.FixedUSD)
		if err != nil {
			return nil, 0, fmt.Errorf("rates.fixed_usd: %w", err)
		}
		return rates.Fixed(rate), 0, nil
	}

	src := rates.NewCoinGecko(c.CoinID)
	if c.URL != "" {
		src.URL = c.URL
	}
	return rates.NewFeed(src, logger), config.Duration(c.RefreshInterval, 5*time.Minute), nil
}
