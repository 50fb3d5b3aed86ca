// Package pricing holds the pure pricing, referral and re-audit entitlement
// rules. Nothing here performs I/O or blocks.
package pricing

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/auditledger/service"
	"github.com/xraph/auditledger/types"
)

// Quote is the price due for one submission.
type Quote struct {
	ServiceType     service.Type `json:"service_type"`
	Base            types.Money  `json:"base"`
	Due             types.Money  `json:"due"`
	Savings         types.Money  `json:"savings"`
	ReferralApplied bool         `json:"referral_applied"`
	Waived          bool         `json:"waived,omitempty"`
}

// IsReferralEligible reports whether the service has a referral price.
func IsReferralEligible(def service.Definition) bool {
	return def.ReferralEligible()
}

// ValidateReferralCode checks that code is address-shaped: "0x" followed by
// 40 hex characters. All-lower and all-upper hex are accepted as-is; mixed
// case must carry a valid EIP-55 checksum.
func ValidateReferralCode(code string) bool {
	if len(code) != 42 || !strings.HasPrefix(code, "0x") {
		return false
	}
	if !common.IsHexAddress(code) {
		return false
	}
	body := code[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(code).Hex() == code
}

// NormalizeAddress lower-cases an address for case-insensitive comparison.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ComputePrice returns the referral price when the code is valid and the
// service is referral-eligible, otherwise the base price.
func ComputePrice(def service.Definition, referralCode string) Quote {
	q := Quote{
		ServiceType: def.Type,
		Base:        def.Price,
		Due:         def.Price,
		Savings:     types.Zero(def.Price.Currency),
	}
	if IsReferralEligible(def) && ValidateReferralCode(referralCode) {
		q.Due = *def.ReferralPrice
		q.Savings = def.Price.Subtract(*def.ReferralPrice)
		q.ReferralApplied = true
	}
	return q
}

// Waive returns a zero-due quote for admin and re-audit submissions.
func Waive(def service.Definition) Quote {
	zero := types.Zero(def.Price.Currency)
	return Quote{
		ServiceType: def.Type,
		Base:        def.Price,
		Due:         zero,
		Savings:     zero,
		Waived:      true,
	}
}
