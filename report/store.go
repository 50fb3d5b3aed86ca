package report

import "context"

// Store persists the full ordered collection of records as one unit.
// SaveAll replaces everything; there are no partial writes.
type Store interface {
	Load(ctx context.Context) ([]*ServiceReport, error)
	SaveAll(ctx context.Context, records []*ServiceReport) error
}
