// Package snapshot encodes the report collection as the single JSON array
// that every store backend persists.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xraph/auditledger"
	"github.com/xraph/auditledger/report"
)

// DefaultKey names the persisted entry.
const DefaultKey = "fito_all_audits"

// Encode renders records in storage order. An empty collection encodes
// as "[]".
func Encode(records []*report.ServiceReport) ([]byte, error) {
	if records == nil {
		records = []*report.ServiceReport{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return data, nil
}

// Decode parses a persisted snapshot. Empty input means no prior state.
// Unparseable input returns an empty collection and an error wrapping
// auditledger.ErrCorruptState.
func Decode(data []byte) ([]*report.ServiceReport, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []*report.ServiceReport{}, nil
	}

	var records []*report.ServiceReport
	if err := json.Unmarshal(data, &records); err != nil {
		return []*report.ServiceReport{}, fmt.Errorf("%w: %v", auditledger.ErrCorruptState, err)
	}

	out := records[:0]
	for _, r := range records {
		if r == nil || r.ID.IsNil() {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
