package pricing

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/service"
	"github.com/xraph/auditledger/types"
)

const validCode = "0x51ea5875d6b7e3b517dda9fbc1b4fe61d566bf98"

func lookup(t *testing.T, typ service.Type) service.Definition {
	t.Helper()
	d, err := service.Default().Lookup(typ)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestValidateReferralCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{validCode, true},
		{"0x51EA5875D6B7E3B517DDA9FBC1B4FE61D566BF98", true},
		{"0x51EA5875D6b7E3B517ddA9fbC1B4FE61d566BF98", true}, // EIP-55 checksum
		{"0x51EA5875D6b7E3B517ddA9fbC1B4FE61d566BF99", false},
		{"0x51eA5875D6b7E3B517ddA9fbC1B4FE61d566BF98", false}, // bad checksum
		{"51ea5875d6b7e3b517dda9fbc1b4fe61d566bf98", false},
		{"0x51ea5875d6b7e3b517dda9fbc1b4fe61d566bf9", false},
		{"0x51ea5875d6b7e3b517dda9fbc1b4fe61d566bf988", false},
		{"0xzzea5875d6b7e3b517dda9fbc1b4fe61d566bf98", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ValidateReferralCode(tt.code); got != tt.want {
				t.Errorf("ValidateReferralCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsReferralEligible(t *testing.T) {
	tests := []struct {
		typ  service.Type
		want bool
	}{
		{service.SmartContractAudit, true},
		{service.L1L2Audit, true},
		{service.PenetrationTest, true},
		{service.KYCSingle, false},
		{service.KYCTeam, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := IsReferralEligible(lookup(t, tt.typ)); got != tt.want {
				t.Errorf("IsReferralEligible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputePriceWithoutReferral(t *testing.T) {
	for _, def := range service.Default().All() {
		for _, code := range []string{"", "not-a-code", "0x1234"} {
			q := ComputePrice(def, code)
			if !q.Due.Equal(def.Price) {
				t.Errorf("%s/%q: due %v, want %v", def.Type, code, q.Due, def.Price)
			}
			if !q.Savings.IsZero() || q.ReferralApplied {
				t.Errorf("%s/%q: expected no savings, got %v", def.Type, code, q.Savings)
			}
		}
	}
}

func TestComputePriceWithReferral(t *testing.T) {
	for _, def := range service.Default().All() {
		q := ComputePrice(def, validCode)
		if !def.ReferralEligible() {
			if !q.Due.Equal(def.Price) || !q.Savings.IsZero() {
				t.Errorf("%s: referral must not affect price, got due %v savings %v", def.Type, q.Due, q.Savings)
			}
			continue
		}
		if !q.Due.Equal(*def.ReferralPrice) {
			t.Errorf("%s: due %v, want %v", def.Type, q.Due, def.ReferralPrice)
		}
		want := def.Price.Subtract(*def.ReferralPrice)
		if !q.Savings.Equal(want) || q.Savings.IsNegative() || q.Due.IsNegative() {
			t.Errorf("%s: savings %v, want %v", def.Type, q.Savings, want)
		}
	}
}

func TestComputePriceScenarios(t *testing.T) {
	sc := lookup(t, service.SmartContractAudit)
	if q := ComputePrice(sc, ""); !q.Due.Equal(types.Dollars(750)) {
		t.Errorf("no referral: due %v, want $750", q.Due)
	}
	q := ComputePrice(sc, validCode)
	if !q.Due.Equal(types.Dollars(250)) || !q.Savings.Equal(types.Dollars(500)) {
		t.Errorf("referral: due %v savings %v, want $250/$500", q.Due, q.Savings)
	}

	kyc := lookup(t, service.KYCSingle)
	if q := ComputePrice(kyc, validCode); !q.Due.Equal(types.Dollars(250)) {
		t.Errorf("KYC_SINGLE with referral: due %v, want $250", q.Due)
	}
}

func TestWaive(t *testing.T) {
	q := Waive(lookup(t, service.L1L2Audit))
	if !q.Due.IsZero() || !q.Waived {
		t.Errorf("Waive: %+v", q)
	}
}

func TestConvertToNative(t *testing.T) {
	tests := []struct {
		name   string
		amount types.Money
		rate   decimal.NullDecimal
		want   string
		ok     bool
	}{
		{"unknown rate", types.Dollars(750), decimal.NullDecimal{}, "0", false},
		{"zero rate", types.Dollars(750), decimal.NewNullDecimal(decimal.Zero), "0", false},
		{"negative rate", types.Dollars(750), decimal.NewNullDecimal(decimal.NewFromInt(-1)), "0", false},
		{"exact", types.Dollars(750), decimal.NewNullDecimal(decimal.NewFromInt(600)), "1.25", true},
		{"repeating", types.Dollars(250), decimal.NewNullDecimal(decimal.NewFromInt(3)), "83.333333333333333333", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ConvertToNative(tt.amount, tt.rate)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestToWei(t *testing.T) {
	want, _ := new(big.Int).SetString("1250000000000000000", 10)
	if got := ToWei(decimal.RequireFromString("1.25")); got.Cmp(want) != 0 {
		t.Errorf("ToWei(1.25) = %s, want %s", got, want)
	}
	if got := ToWei(decimal.RequireFromString("0.0000000000000000019")); got.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("ToWei should truncate below 1 wei, got %s", got)
	}
	if got := FromWei(want); !got.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("FromWei = %s", got)
	}
}

func TestComputeReferralEarnings(t *testing.T) {
	records := []*report.ServiceReport{
		{ServiceType: service.SmartContractAudit, ReferralCode: validCode},
		{ServiceType: service.L1L2Audit, ReferralCode: "0x51EA5875D6B7E3B517DDA9FBC1B4FE61D566BF98"},
		{ServiceType: service.KYCTeam, ReferralCode: validCode},
		{ServiceType: service.PenetrationTest, ReferralCode: "0x0000000000000000000000000000000000000001"},
		{ServiceType: service.KYCSingle},
	}

	e := ComputeReferralEarnings(service.Default(), records, "0x51EA5875D6b7E3B517ddA9fbC1B4FE61d566BF98")
	if e.Count != 3 {
		t.Errorf("Count = %d, want 3", e.Count)
	}
	if want := types.Dollars(50 + 350 + 150); !e.Total.Equal(want) {
		t.Errorf("Total = %v, want %v", e.Total, want)
	}

	none := ComputeReferralEarnings(service.Default(), records, "0x00000000000000000000000000000000000000ff")
	if none.Count != 0 || !none.Total.IsZero() {
		t.Errorf("unrelated referrer earned %v", none.Total)
	}
}

func intp(n int) *int { return &n }

func TestInitialAllowance(t *testing.T) {
	if got := InitialAllowance(lookup(t, service.SmartContractAudit), false); got == nil || *got != 2 {
		t.Errorf("root contract audit allowance = %v, want 2", got)
	}
	if got := InitialAllowance(lookup(t, service.L1L2Audit), false); got == nil || *got != 2 {
		t.Errorf("root L1/L2 audit allowance = %v, want 2", got)
	}
	if got := InitialAllowance(lookup(t, service.SmartContractAudit), true); got != nil {
		t.Errorf("re-audit must not carry an allowance, got %d", *got)
	}
	for _, typ := range []service.Type{service.PenetrationTest, service.KYCSingle, service.KYCTeam} {
		if got := InitialAllowance(lookup(t, typ), false); got != nil {
			t.Errorf("%s must not carry an allowance, got %d", typ, *got)
		}
	}
}

func TestConsumeReaudit(t *testing.T) {
	parent := &report.ServiceReport{RemainingSubmissions: intp(2)}

	for want := 1; want >= 0; want-- {
		if err := ConsumeReaudit(parent); err != nil {
			t.Fatalf("consume: %v", err)
		}
		if *parent.RemainingSubmissions != want {
			t.Errorf("remaining = %d, want %d", *parent.RemainingSubmissions, want)
		}
	}

	if err := ConsumeReaudit(parent); !errors.Is(err, ErrAllowanceExhausted) {
		t.Errorf("third consume: got %v, want ErrAllowanceExhausted", err)
	}
	if *parent.RemainingSubmissions != 0 {
		t.Errorf("allowance went below zero: %d", *parent.RemainingSubmissions)
	}
}

func TestCheckReauditRejections(t *testing.T) {
	tests := []struct {
		name   string
		parent *report.ServiceReport
		want   error
	}{
		{"nil", nil, ErrNotReauditable},
		{"undefined allowance", &report.ServiceReport{}, ErrNotReauditable},
		{"re-audit parent", &report.ServiceReport{IsReaudit: true, RemainingSubmissions: intp(1)}, ErrNotReauditable},
		{"zero", &report.ServiceReport{RemainingSubmissions: intp(0)}, ErrAllowanceExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := CheckReaudit(tt.parent); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if CanReaudit(tt.parent) {
				t.Error("CanReaudit should be false")
			}
		})
	}
}
