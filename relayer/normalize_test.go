package relayer

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name       string
		raw        *big.Int
		decimals   uint8
		wantScaled string
		wantHuman  string
	}{
		{
			name:       "six decimal token scales up to 18",
			raw:        big.NewInt(1_000_000),
			decimals:   6,
			wantScaled: "1000000000000000000",
			wantHuman:  "1",
		},
		{
			name:       "eighteen decimal token is identity",
			raw:        big.NewInt(123456789),
			decimals:   18,
			wantScaled: "123456789",
			wantHuman:  "0.000000000123456789",
		},
		{
			name:       "fractional six decimal amount",
			raw:        big.NewInt(1_500_000),
			decimals:   6,
			wantScaled: "1500000000000000000",
			wantHuman:  "1.5",
		},
		{
			name:       "zero",
			raw:        big.NewInt(0),
			decimals:   6,
			wantScaled: "0",
			wantHuman:  "0",
		},
		{
			name:       "value too large for float64 stays exact",
			raw:        mustBig(t, "123456789012345678901234567"),
			decimals:   6,
			wantScaled: "123456789012345678901234567000000000000",
			wantHuman:  "123456789012345678901.234567",
		},
		{
			name:       "more than 18 decimals truncates toward zero",
			raw:        big.NewInt(1999),
			decimals:   21,
			wantScaled: "1",
			wantHuman:  "0.000000000000000001999",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scaled, human, err := NormalizeAmount(tt.raw, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.wantScaled, scaled.String())
			assert.Equal(t, tt.wantHuman, human)
		})
	}
}

func TestNormalizeAmount_RejectsNilAndNegative(t *testing.T) {
	_, _, err := NormalizeAmount(nil, 6)
	assert.Error(t, err)

	_, _, err = NormalizeAmount(big.NewInt(-1), 6)
	assert.Error(t, err)
}

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return v
}
