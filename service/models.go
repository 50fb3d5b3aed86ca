// Package service holds the table-driven pricing and intake configuration
// for every service kind the ledger sells.
package service

import (
	"fmt"
	"strings"

	"github.com/xraph/auditledger/types"
)

type Type string

const (
	SmartContractAudit Type = "SMART_CONTRACT_AUDIT"
	L1L2Audit          Type = "L1_L2_AUDIT"
	PenetrationTest    Type = "PENETRATION_TEST"
	KYCSingle          Type = "KYC_SINGLE"
	KYCTeam            Type = "KYC_TEAM"
)

// ParseType accepts the canonical upper-case name of a service type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case SmartContractAudit, L1L2Audit, PenetrationTest, KYCSingle, KYCTeam:
		return t, nil
	default:
		return "", fmt.Errorf("service: unknown type %q", s)
	}
}

// Category selects which result vocabulary a service produces.
type Category string

const (
	CategoryAudit Category = "audit"
	CategoryKYC   Category = "kyc"
)

// Detail keys accepted in a submission.
const (
	FieldProjectName   = "projectName"
	FieldChain         = "chain"
	FieldContractCode  = "contractCode"
	FieldGithubRepo    = "githubRepo"
	FieldWebsiteURL    = "websiteUrl"
	FieldDocumentLinks = "documentLinks"
	FieldContactEmail  = "contactEmail"
)

// Chains supported for contract audits.
const (
	ChainEVM       = "EVM"
	ChainSolana    = "Solana"
	ChainFitochain = "Fitochain"
)

type Field struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	// Format is a validator tag applied to non-empty values.
	Format  string `json:"format,omitempty"`
	Default string `json:"default,omitempty"`
}

type Definition struct {
	Type             Type         `json:"type"`
	Name             string       `json:"name"`
	Description      string       `json:"description"`
	Category         Category     `json:"category"`
	Price            types.Money  `json:"price"`
	ReferralPrice    *types.Money `json:"referral_price,omitempty"`
	ReferralPayout   types.Money  `json:"referral_payout"`
	ReauditAllowance int          `json:"reaudit_allowance"`
	Fields           []Field      `json:"fields"`
	// Brief is the text/template rendered into the analysis request.
	// Detail keys are available as {{.projectName}} and so on.
	Brief string `json:"-"`
}

// ReferralEligible reports whether a referral code changes the price.
func (d Definition) ReferralEligible() bool { return d.ReferralPrice != nil }

// ReauditEligible reports whether root records of this type carry an allowance.
func (d Definition) ReauditEligible() bool { return d.ReauditAllowance > 0 }

// Field returns the field definition for key.
func (d Definition) Field(key string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredFields lists the keys that must be non-empty.
func (d Definition) RequiredFields() []string {
	keys := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}
