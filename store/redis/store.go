// Package redis persists the report snapshot under one Redis key and
// provides a redislock-backed Locker so several processes can share it.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/auditledger"
	"github.com/xraph/auditledger/report"
	auditstore "github.com/xraph/auditledger/store"
	"github.com/xraph/auditledger/store/snapshot"
)

// compile-time interface checks
var (
	_ auditstore.Store  = (*Store)(nil)
	_ auditstore.Locker = (*Locker)(nil)
)

// Store implements store.Store on a Redis string key.
type Store struct {
	rdb goredis.UniversalClient
	key string
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides snapshot.DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// New creates a store on rdb.
func New(rdb goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{rdb: rdb, key: snapshot.DefaultKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.UniversalClient { return s.rdb }

// Key returns the snapshot key.
func (s *Store) Key() string { return s.key }

func (s *Store) Load(ctx context.Context) ([]*report.ServiceReport, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return []*report.ServiceReport{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auditledger/redis: get %s: %w", s.key, err)
	}
	return snapshot.Decode(data)
}

func (s *Store) SaveAll(ctx context.Context, records []*report.ServiceReport) error {
	data, err := snapshot.Encode(records)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("auditledger/redis: set %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// Locker obtains a redislock on "lock:<key>".
type Locker struct {
	client *redislock.Client
	key    string
	ttl    time.Duration
	opts   *redislock.Options
}

// NewLocker creates a Locker guarding the store's snapshot key. Obtain
// retries every retry interval until ctx is done.
func (s *Store) NewLocker(ttl, retry time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	l := &Locker{
		client: redislock.New(s.rdb),
		key:    "lock:" + s.key,
		ttl:    ttl,
	}
	if retry > 0 {
		l.opts = &redislock.Options{RetryStrategy: redislock.LinearBackoff(retry)}
	}
	return l
}

// Obtain implements store.Locker.
func (l *Locker) Obtain(ctx context.Context) (auditstore.Lock, error) {
	lock, err := l.client.Obtain(ctx, l.key, l.ttl, l.opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", auditledger.ErrLockNotObtained, l.key)
	}
	if err != nil {
		return nil, fmt.Errorf("auditledger/redis: obtain %s: %w", l.key, err)
	}
	return lock, nil
}
