package types

import (
	"testing"

	relayererrors "github.com/assetbridge-io/relayer/common/errors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEventHash_ProbesFieldsInOrder(t *testing.T) {
	tests := []struct {
		name   string
		event  ChainEvent
		want   string
		wantOK bool
	}{
		{
			name:   "top-level transactionHash wins",
			event:  ChainEvent{TransactionHash: "0x1", Log: &LogRef{TransactionHash: "0x2"}},
			want:   "0x1",
			wantOK: true,
		},
		{
			name:   "falls back to log.transactionHash",
			event:  ChainEvent{Log: &LogRef{TransactionHash: "0x2"}},
			want:   "0x2",
			wantOK: true,
		},
		{
			name:   "falls back to receipt.transactionHash",
			event:  ChainEvent{Receipt: &ReceiptRef{TransactionHash: "0x3"}},
			want:   "0x3",
			wantOK: true,
		},
		{
			name:   "falls back to transaction.hash",
			event:  ChainEvent{Transaction: &TxRef{Hash: "0x4"}},
			want:   "0x4",
			wantOK: true,
		},
		{
			name:   "no hash anywhere",
			event:  ChainEvent{},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.event.ExtractEventHash()
			if tt.wantOK {
				require.NoError(t, err)
			} else {
				var missing *relayererrors.MissingHashError
				require.True(t, errors.As(err, &missing), "a hashless event must yield MissingHashError")
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChainTag_ParseAndOpposite(t *testing.T) {
	tag, ok := ParseChainTag("L1")
	assert.True(t, ok)
	assert.Equal(t, L1, tag)
	assert.Equal(t, L2, tag.Opposite())

	_, ok = ParseChainTag("L3")
	assert.False(t, ok)
}
