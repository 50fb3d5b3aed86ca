// Package rates tracks the USD price of the native coin used for payment.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoQuote is returned when the source answers without a usable price.
var ErrNoQuote = errors.New("rates: no price in response")

// Source fetches the current USD price of one native coin unit.
type Source interface {
	Fetch(ctx context.Context) (decimal.Decimal, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (decimal.Decimal, error)

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context) (decimal.Decimal, error) { return f(ctx) }

// DefaultCoinGeckoURL is the public simple-price endpoint.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price"

// CoinGecko reads a simple-price quote.
type CoinGecko struct {
	URL    string
	CoinID string
	HTTP   *http.Client
}

// NewCoinGecko returns a source for coinID (for example "binancecoin").
func NewCoinGecko(coinID string) *CoinGecko {
	return &CoinGecko{
		URL:    DefaultCoinGeckoURL,
		CoinID: coinID,
		HTTP:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch implements Source.
func (c *CoinGecko) Fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rates: build request: %w", err)
	}
	q := req.URL.Query()
	q.Set("ids", c.CoinID)
	q.Set("vs_currencies", "usd")
	req.URL.RawQuery = q.Encode()

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rates: fetch %s: %w", c.CoinID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rates: fetch %s: status %d", c.CoinID, resp.StatusCode)
	}

	var body map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("rates: decode: %w", err)
	}
	price, ok := body[c.CoinID]["usd"]
	if !ok || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoQuote, c.CoinID)
	}
	return price, nil
}

// Feed caches the last successful quote. Current never blocks on the
// network; it reports unknown until the first Refresh succeeds.
type Feed struct {
	source Source
	logger *slog.Logger

	mu        sync.RWMutex
	rate      decimal.NullDecimal
	fetchedAt time.Time
}

// NewFeed creates a feed backed by source.
func NewFeed(source Source, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{source: source, logger: logger}
}

// Fixed returns a feed that always reports rate. Useful in tests and for
// deployments with a pinned rate.
func Fixed(rate decimal.Decimal) *Feed {
	return &Feed{
		logger:    slog.Default(),
		rate:      decimal.NewNullDecimal(rate),
		fetchedAt: time.Now(),
	}
}

// Current returns the cached rate.
func (f *Feed) Current() decimal.NullDecimal {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.rate
}

// FetchedAt returns when the cached rate was obtained.
func (f *Feed) FetchedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fetchedAt
}

// Refresh fetches a new rate. On failure the previous value is kept.
func (f *Feed) Refresh(ctx context.Context) error {
	if f.source == nil {
		return nil
	}

	price, err := f.source.Fetch(ctx)
	if err != nil {
		f.logger.Warn("exchange rate refresh failed", "error", err)
		return err
	}

	f.mu.Lock()
	f.rate = decimal.NewNullDecimal(price)
	f.fetchedAt = time.Now()
	f.mu.Unlock()

	f.logger.Debug("exchange rate refreshed", "usd", price.String())
	return nil
}
