package auditledger

import (
	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/service"
	"github.com/xraph/auditledger/types"
)

// Re-export common types for convenience so users don't have to import
// the sub-packages for everyday use.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// ServiceReport is re-exported from report package.
type ServiceReport = report.ServiceReport

// ServiceType is re-exported from service package.
type ServiceType = service.Type

// Re-export Money constructors
var (
	USD     = types.USD
	Dollars = types.Dollars
	Zero    = types.Zero
	Sum     = types.Sum
)

// Re-export service types
const (
	SmartContractAudit = service.SmartContractAudit
	L1L2Audit          = service.L1L2Audit
	PenetrationTest    = service.PenetrationTest
	KYCSingle          = service.KYCSingle
	KYCTeam            = service.KYCTeam
)
