package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the audit ledger store (PostgreSQL).
var Migrations = migrate.NewGroup("auditledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_auditledger_snapshots",
			Version: "20250301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS auditledger_snapshots (
    key          TEXT PRIMARY KEY,
    payload      JSONB NOT NULL DEFAULT '[]'::jsonb,
    record_count INTEGER NOT NULL DEFAULT 0,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS auditledger_snapshots`)
				return err
			},
		},
	)
}
