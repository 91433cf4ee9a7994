package evm

import (
	"context"
	"math/big"

	"github.com/assetbridge-io/relayer/common/contracts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// GetTokenBalance reads a native or ERC-20 balance, used by the
// operator balance endpoints for liquidity monitoring. Pass tokenAddress
// as "" or the zero address for the native balance.
func (c *Chain) GetTokenBalance(ctx context.Context, address, tokenAddress string) (*big.Int, error) {
	client := c.getClient()
	if client == nil {
		return nil, c.notConnected()
	}

	if tokenAddress == "" || tokenAddress == zeroAddress {
		balance, err := client.BalanceAt(ctx, common.HexToAddress(address), nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get native token balance")
		}
		return balance, nil
	}

	data, err := contracts.ERC20.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack balanceOf call")
	}

	result, err := c.callRead(ctx, tokenAddress, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call balanceOf")
	}

	unpacked, err := contracts.ERC20.Unpack("balanceOf", result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack balanceOf result")
	}

	return unpacked[0].(*big.Int), nil
}

// SolverAddress returns the address the configured signer submits
// transactions from, so an operator can check it holds sufficient gas
// and bridge liquidity without grepping the private key out of config.
func (c *Chain) SolverAddress() (string, error) {
	s, err := c.getSigner()
	if err != nil {
		return "", err
	}
	return s.Address().Hex(), nil
}
