package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/auditledger/report"
	auditstore "github.com/xraph/auditledger/store"
	"github.com/xraph/auditledger/store/snapshot"
)

// compile-time interface check
var _ auditstore.Store = (*Store)(nil)

type snapshotModel struct {
	grove.BaseModel `grove:"table:auditledger_snapshots"`

	Key         string    `grove:"key,pk"`
	Payload     string    `grove:"payload"`
	RecordCount int       `grove:"record_count"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
	key string
}

// New creates a new SQLite store backed by Grove ORM. The snapshot row is
// keyed by snapshot.DefaultKey unless key is set.
func New(db *grove.DB, key string) *Store {
	if key == "" {
		key = snapshot.DefaultKey
	}
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
		key: key,
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("auditledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("auditledger/sqlite: migration failed: %w", err)
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
	err := s.sdb.NewSelect(m).
		Where("key = ?", s.key).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return []*report.ServiceReport{}, nil
		}
		return nil, fmt.Errorf("auditledger/sqlite: load snapshot: %w", err)
	}
	return snapshot.Decode([]byte(m.Payload))
}

func (s *Store) SaveAll(ctx context.Context, records []*report.ServiceReport) error {
	data, err := snapshot.Encode(records)
	if err != nil {
		return err
	}
	m := &snapshotModel{
		Key:         s.key,
		Payload:     string(data),
		RecordCount: len(records),
		UpdatedAt:   time.Now().UTC(),
	}
	_, err = s.sdb.NewInsert(m).
		OnConflict("(key) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("record_count = EXCLUDED.record_count").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("auditledger/sqlite: save snapshot: %w", err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
