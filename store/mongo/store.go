package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/auditledger/report"
	auditstore "github.com/xraph/auditledger/store"
	"github.com/xraph/auditledger/store/snapshot"
)

// Collection name constants.
const (
	colSnapshots = "auditledger_snapshots"
)

// compile-time interface check
var _ auditstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
	key string
}

// New creates a new MongoDB store backed by Grove ORM. The snapshot
// document is keyed by snapshot.DefaultKey unless key is set.
func New(db *grove.DB, key string) *Store {
	if key == "" {
		key = snapshot.DefaultKey
	}
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
		key: key,
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for the snapshot collection.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("auditledger/mongo: migrate %s indexes: %w", col, err)
		}
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
	var m snapshotModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": s.key}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return []*report.ServiceReport{}, nil
		}
		return nil, fmt.Errorf("auditledger/mongo: load snapshot: %w", err)
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

	_, err = s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Key}).
		SetUpdate(bson.M{"$set": bson.M{
			"payload":      m.Payload,
			"record_count": m.RecordCount,
			"updated_at":   m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("auditledger/mongo: save snapshot: %w", err)
	}
	return nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the ledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colSnapshots: {
			{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		},
	}
}
