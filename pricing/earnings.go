package pricing

import (
	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/service"
	"github.com/xraph/auditledger/types"
)

// Earnings summarizes the payouts owed to one referrer.
type Earnings struct {
	Referrer string                  `json:"referrer"`
	Count    int                     `json:"count"`
	Total    types.Money             `json:"total"`
	Records  []*report.ServiceReport `json:"records,omitempty"`
}

// ComputeReferralEarnings sums the payout of every record whose referral
// code matches referrer case-insensitively. Records of types missing from
// the catalog count toward Count but contribute no payout.
func ComputeReferralEarnings(cat *service.Catalog, records []*report.ServiceReport, referrer string) Earnings {
	e := Earnings{Referrer: referrer, Total: types.Zero("usd")}
	key := NormalizeAddress(referrer)
	if key == "" {
		return e
	}

	for _, r := range records {
		if r.ReferralCode == "" || NormalizeAddress(r.ReferralCode) != key {
			continue
		}
		e.Count++
		e.Records = append(e.Records, r)
		if def, err := cat.Lookup(r.ServiceType); err == nil {
			e.Total = e.Total.Add(def.ReferralPayout)
		}
	}
	return e
}
