package evm

import (
	"context"
	"math/big"

	"github.com/assetbridge-io/relayer/common/contracts"
	relayererrors "github.com/assetbridge-io/relayer/common/errors"
	"github.com/assetbridge-io/relayer/common/types"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// ExecuteBuy submits executeBuy(user, l2Token, amount, minOut, nonce,
// deadline, sig) with the fixed ExecuteGasLimit.
func (c *Chain) ExecuteBuy(ctx context.Context, user, l2Token string, amount, minOut, nonce, deadline *big.Int, sig []byte) (*types.SentTx, error) {
	data, err := contracts.Bridge.Pack("executeBuy",
		common.HexToAddress(user), common.HexToAddress(l2Token), amount, minOut, nonce, deadline, sig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack executeBuy call")
	}

	return c.submit(ctx, data)
}

// Withdraw submits withdraw(user, asset, lpShare, nonce, deadline, sig)
// with the fixed ExecuteGasLimit.
func (c *Chain) Withdraw(ctx context.Context, user, asset string, lpShare, nonce, deadline *big.Int, sig []byte) (*types.SentTx, error) {
	data, err := contracts.Bridge.Pack("withdraw",
		common.HexToAddress(user), common.HexToAddress(asset), lpShare, nonce, deadline, sig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack withdraw call")
	}

	return c.submit(ctx, data)
}

// submit builds, signs and sends a call to the configured bridge
// contract with ExecuteGasLimit, returning the resulting SentTx. Every
// send failure, including one whose message contains "already known", is
// returned as a TxError; the Relayer uses TxError.IsAlreadyKnown to treat
// that case as a soft warning.
func (c *Chain) submit(ctx context.Context, data []byte) (*types.SentTx, error) {
	client := c.getClient()
	if client == nil {
		return nil, c.notConnected()
	}

	s, err := c.getSigner()
	if err != nil {
		return nil, err
	}

	nonce, err := client.PendingNonceAt(ctx, s.Address())
	if err != nil {
		return nil, relayererrors.NewConnectionError(c.config.Name, errors.Wrap(err, "failed to get pending nonce"))
	}

	tx, err := c.buildTx(ctx, nonce, c.config.BridgeContract, data)
	if err != nil {
		return nil, err
	}

	chainID := new(big.Int).SetUint64(c.config.ChainID)
	signedTx, err := s.SignTx(tx, chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return nil, relayererrors.NewTxError("submit", err)
	}

	return &types.SentTx{Hash: signedTx.Hash().Hex(), Nonce: nonce}, nil
}

func (c *Chain) buildTx(ctx context.Context, nonce uint64, to string, data []byte) (*ethtypes.Transaction, error) {
	toAddr := common.HexToAddress(to)

	if c.config.TxType == TxTypeEIP1559 {
		priced, err := c.getEIP1559GasPrice(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get EIP-1559 gas price")
		}

		return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   new(big.Int).SetUint64(c.config.ChainID),
			Nonce:     nonce,
			GasFeeCap: priced.MaxFeePerGas,
			GasTipCap: priced.MaxPriorityFeePerGas,
			Gas:       ExecuteGasLimit,
			To:        &toAddr,
			Value:     big.NewInt(0),
			Data:      data,
		}), nil
	}

	gasPrice, err := c.getLegacyGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gas price")
	}

	return ethtypes.NewTransaction(nonce, toAddr, big.NewInt(0), ExecuteGasLimit, gasPrice, data), nil
}
