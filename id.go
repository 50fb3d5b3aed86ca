package auditledger

import "github.com/xraph/auditledger/id"

// ID is the primary identifier type for all auditledger entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// ReportID identifies a service report.
type ReportID = id.ReportID

// ParseReportID parses a "rpt_..." identifier.
var ParseReportID = id.ParseReportID
