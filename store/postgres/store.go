package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/auditledger/report"
	auditstore "github.com/xraph/auditledger/store"
	"github.com/xraph/auditledger/store/snapshot"
)

// compile-time interface check
var _ auditstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db  *grove.DB
	pg  *pgdriver.PgDB
	key string
}

// New creates a new PostgreSQL store backed by Grove ORM. The snapshot row
// is keyed by snapshot.DefaultKey unless key is set.
func New(db *grove.DB, key string) *Store {
	if key == "" {
		key = snapshot.DefaultKey
	}
	return &Store{
		db:  db,
		pg:  pgdriver.Unwrap(db),
		key: key,
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("auditledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("auditledger/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context) ([]*report.ServiceReport, error) {
	m := new(snapshotModel)
	err := s.pg.NewSelect(m).
		Where("key = $1", s.key).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return []*report.ServiceReport{}, nil
		}
		return nil, fmt.Errorf("auditledger/postgres: load snapshot: %w", err)
	}
	return fromSnapshotModel(m)
}

func (s *Store) SaveAll(ctx context.Context, records []*report.ServiceReport) error {
	m, err := toSnapshotModel(s.key, records)
	if err != nil {
		return err
	}
	_, err = s.pg.NewInsert(m).
		OnConflict("(key) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("record_count = EXCLUDED.record_count").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("auditledger/postgres: save snapshot: %w", err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
