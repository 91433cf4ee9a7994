package relayer

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const targetDecimals = 18

// NormalizeAmount converts a raw token amount carrying `decimals`
// fractional digits into the 18-decimal fixed-point representation the
// destination contract expects, plus the human-readable decimal string
// persisted on the RelayRecord.
//
// Scaling is exact: raw * 10^(18-decimals) for decimals <= 18, computed
// over arbitrary-precision decimals rather than the float64 round-trip
// the deployed relayer performs. For any value where the float64 path is
// lossless the two agree; where it is not, this one is simply correct.
// For decimals > 18 the scaled value is truncated toward zero, matching
// integer division.
func NormalizeAmount(raw *big.Int, decimals uint8) (*big.Int, string, error) {
	if raw == nil {
		return nil, "", errors.New("raw amount is nil")
	}
	if raw.Sign() < 0 {
		return nil, "", errors.New("raw amount is negative")
	}

	human := decimal.NewFromBigInt(raw, -int32(decimals))
	scaled := human.Shift(targetDecimals)

	return scaled.BigInt(), human.String(), nil
}
