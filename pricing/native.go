package pricing

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/xraph/auditledger/types"
)

// NativeDecimals is the precision of the chain's native unit (wei).
const NativeDecimals = 18

// ConvertToNative divides a fiat amount by the native coin's fiat rate.
// It reports false when the rate is unknown or not positive.
func ConvertToNative(amount types.Money, rate decimal.NullDecimal) (decimal.Decimal, bool) {
	if !rate.Valid || !rate.Decimal.IsPositive() {
		return decimal.Zero, false
	}
	return amount.Decimal().DivRound(rate.Decimal, NativeDecimals), true
}

// ToWei converts a native-unit amount to its smallest unit, truncating
// anything below 1 wei.
func ToWei(native decimal.Decimal) *big.Int {
	return native.Shift(NativeDecimals).Truncate(0).BigInt()
}

// FromWei converts a smallest-unit amount back to native units.
func FromWei(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -NativeDecimals)
}
