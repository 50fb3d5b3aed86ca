package service

import (
	"errors"
	"fmt"

	"github.com/xraph/auditledger/types"
)

// ErrUnknownType is returned when a catalog has no entry for a type.
var ErrUnknownType = errors.New("service: unknown service type")

// Catalog is an immutable, ordered set of service definitions.
type Catalog struct {
	defs  map[Type]Definition
	order []Type
}

// NewCatalog builds a catalog and checks every entry for consistency.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[Type]Definition, len(defs))}
	for _, d := range defs {
		if _, dup := c.defs[d.Type]; dup {
			return nil, fmt.Errorf("service: duplicate definition for %s", d.Type)
		}
		if d.Category != CategoryAudit && d.Category != CategoryKYC {
			return nil, fmt.Errorf("service: %s has unknown category %q", d.Type, d.Category)
		}
		if d.ReferralPrice != nil && d.Price.LessThan(*d.ReferralPrice) {
			return nil, fmt.Errorf("service: %s referral price %s exceeds base %s", d.Type, d.ReferralPrice, d.Price)
		}
		if d.ReauditAllowance < 0 {
			return nil, fmt.Errorf("service: %s has negative re-audit allowance", d.Type)
		}
		if f, ok := d.Field(FieldProjectName); !ok || !f.Required {
			return nil, fmt.Errorf("service: %s must require %s", d.Type, FieldProjectName)
		}
		c.defs[d.Type] = d
		c.order = append(c.order, d.Type)
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on error.
func MustCatalog(defs ...Definition) *Catalog {
	c, err := NewCatalog(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the definition for t.
func (c *Catalog) Lookup(t Type) (Definition, error) {
	d, ok := c.defs[t]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return d, nil
}

// All returns the definitions in registration order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.defs[t])
	}
	return out
}

func price(whole int64) *types.Money {
	m := types.Dollars(whole)
	return &m
}

var projectName = Field{Key: FieldProjectName, Label: "Project Name", Required: true}

// Default returns the production price list.
func Default() *Catalog {
	return MustCatalog(
		Definition{
			Type:             SmartContractAudit,
			Name:             "Smart-Contract Audit",
			Description:      "In-depth static analysis and vulnerability scanning of your smart contract code.",
			Category:         CategoryAudit,
			Price:            types.Dollars(750),
			ReferralPrice:    price(250),
			ReferralPayout:   types.Dollars(50),
			ReauditAllowance: 2,
			Fields: []Field{
				projectName,
				{Key: FieldChain, Label: "Chain", Format: "oneof=EVM Solana Fitochain", Default: ChainEVM},
				{Key: FieldContractCode, Label: "Contract Code", Required: true},
			},
			Brief: briefSmartContract,
		},
		Definition{
			Type:             L1L2Audit,
			Name:             "L1/L2 Blockchain Audit",
			Description:      "A comprehensive review of your blockchain's architecture, consensus, and economic model.",
			Category:         CategoryAudit,
			Price:            types.Dollars(7500),
			ReferralPrice:    price(2500),
			ReferralPayout:   types.Dollars(350),
			ReauditAllowance: 2,
			Fields: []Field{
				projectName,
				{Key: FieldGithubRepo, Label: "GitHub Repository", Required: true, Format: "url"},
			},
			Brief: briefL1L2,
		},
		Definition{
			Type:           PenetrationTest,
			Name:           "Blockchain Penetration Testing",
			Description:    "Simulate real-world attacks against your dApp, network, and infrastructure.",
			Category:       CategoryAudit,
			Price:          types.Dollars(5000),
			ReferralPrice:  price(1500),
			ReferralPayout: types.Dollars(175),
			Fields: []Field{
				projectName,
				{Key: FieldWebsiteURL, Label: "Website URL", Required: true, Format: "url"},
			},
			Brief: briefPenTest,
		},
		Definition{
			Type:           KYCSingle,
			Name:           "KYC Service (Single)",
			Description:    "Automated identity verification for one project owner or team member.",
			Category:       CategoryKYC,
			Price:          types.Dollars(250),
			ReferralPayout: types.Dollars(50),
			Fields:         kycFields(),
			Brief:          briefKYC,
		},
		Definition{
			Type:           KYCTeam,
			Name:           "KYC Service (Team of 5)",
			Description:    "Identity verification for up to 5 team members at a discounted rate.",
			Category:       CategoryKYC,
			Price:          types.Dollars(750),
			ReferralPayout: types.Dollars(150),
			Fields:         kycFields(),
			Brief:          briefKYC,
		},
	)
}

func kycFields() []Field {
	return []Field{
		projectName,
		{Key: FieldContactEmail, Label: "Contact Email", Required: true, Format: "email"},
		{Key: FieldDocumentLinks, Label: "Document Links Description", Required: true},
	}
}
