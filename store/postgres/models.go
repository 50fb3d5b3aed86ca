package postgres

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/store/snapshot"
)

type snapshotModel struct {
	grove.BaseModel `grove:"table:auditledger_snapshots"`

	Key         string          `grove:"key,pk"`
	Payload     json.RawMessage `grove:"payload,type:jsonb"`
	RecordCount int             `grove:"record_count"`
	UpdatedAt   time.Time       `grove:"updated_at"`
}

func toSnapshotModel(key string, records []*report.ServiceReport) (*snapshotModel, error) {
	data, err := snapshot.Encode(records)
	if err != nil {
		return nil, err
	}
	return &snapshotModel{
		Key:         key,
		Payload:     data,
		RecordCount: len(records),
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

func fromSnapshotModel(m *snapshotModel) ([]*report.ServiceReport, error) {
	return snapshot.Decode(m.Payload)
}
