package mongo

import (
	"time"

	"github.com/xraph/grove"
)

// snapshotModel holds the encoded collection as a string so the persisted
// layout matches the other backends byte for byte.
type snapshotModel struct {
	grove.BaseModel `grove:"table:auditledger_snapshots"`

	Key         string    `grove:"key,pk"       bson:"_id"`
	Payload     string    `grove:"payload"      bson:"payload"`
	RecordCount int       `grove:"record_count" bson:"record_count"`
	UpdatedAt   time.Time `grove:"updated_at"   bson:"updated_at"`
}
