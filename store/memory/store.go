// Package memory provides an in-process Store. It keeps the encoded
// snapshot rather than live pointers, so callers never share state with it.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/auditledger"
	"github.com/xraph/auditledger/report"
	auditstore "github.com/xraph/auditledger/store"
	"github.com/xraph/auditledger/store/snapshot"
)

// compile-time interface check
var _ auditstore.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	data   []byte
	saves  int
	closed bool
}

func New() *Store {
	return &Store{}
}

// NewWithSnapshot starts from raw persisted bytes, which need not be valid.
func NewWithSnapshot(data []byte) *Store {
	return &Store{data: append([]byte(nil), data...)}
}

func (s *Store) Load(_ context.Context) ([]*report.ServiceReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, auditledger.ErrStoreClosed
	}
	return snapshot.Decode(s.data)
}

func (s *Store) SaveAll(_ context.Context, records []*report.ServiceReport) error {
	data, err := snapshot.Encode(records)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return auditledger.ErrStoreClosed
	}
	s.data = data
	s.saves++
	return nil
}

// Snapshot returns a copy of the persisted bytes.
func (s *Store) Snapshot() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.data...)
}

// Saves reports how many SaveAll calls succeeded.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return auditledger.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return auditledger.ErrStoreClosed
	}
	s.closed = true
	return nil
}
