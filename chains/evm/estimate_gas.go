package evm

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
)

// gasPriceData carries the fee parameters for an EIP-1559 submission.
type gasPriceData struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// getEIP1559GasPrice suggests a tip and derives a max fee at 130% of the
// latest base fee plus tip, floored at tip+baseFee so it can never be
// lower than the bare minimum the network would accept.
func (c *Chain) getEIP1559GasPrice(ctx context.Context) (*gasPriceData, error) {
	client := c.getClient()
	if client == nil {
		return nil, c.notConnected()
	}

	suggestedTip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("failed to get suggested gas tip, defaulting to 1 wei")
		suggestedTip = big.NewInt(1)
	}
	if suggestedTip.Sign() == 0 {
		suggestedTip = big.NewInt(1)
	}

	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest header")
	}
	if header.BaseFee == nil {
		return nil, errors.New("chain does not report a base fee")
	}

	baseFeeBuf := new(big.Int).Mul(header.BaseFee, big.NewInt(130))
	baseFeeBuf.Div(baseFeeBuf, big.NewInt(100))
	maxFeePerGas := new(big.Int).Add(baseFeeBuf, suggestedTip)

	if maxFeePerGas.Cmp(suggestedTip) <= 0 {
		maxFeePerGas = new(big.Int).Add(suggestedTip, header.BaseFee)
	}

	return &gasPriceData{MaxFeePerGas: maxFeePerGas, MaxPriorityFeePerGas: suggestedTip}, nil
}

// getLegacyGasPrice suggests a legacy gas price inflated by 50% headroom.
func (c *Chain) getLegacyGasPrice(ctx context.Context) (*big.Int, error) {
	client := c.getClient()
	if client == nil {
		return nil, c.notConnected()
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get suggested gas price")
	}

	gasPrice = new(big.Int).Mul(gasPrice, big.NewInt(150))
	gasPrice.Div(gasPrice, big.NewInt(100))
	return gasPrice, nil
}
