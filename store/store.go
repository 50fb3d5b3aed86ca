// Package store defines the persistence boundary for the report ledger.
// Every backend persists the whole collection as one snapshot entry, so a
// SaveAll either lands completely or not at all.
package store

import (
	"context"

	"github.com/xraph/auditledger/report"
)

// Store is the unified storage interface implemented by every backend.
type Store interface {
	report.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Lock is a held cross-process lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker guards the reload-modify-save sequence when several processes
// share one Store.
type Locker interface {
	Obtain(ctx context.Context) (Lock, error)
}
