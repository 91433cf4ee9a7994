package evm

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/assetbridge-io/relayer/common/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

const (
	gasIncreaseFactor = 110 // percent, for a stuck-tx replacement to be worth sending
)

// headerSubscription manages a block-header subscription's lifecycle
// the same way types.Subscription does for log subscriptions.
type headerSubscription struct {
	sub        ethereum.Subscription
	headerChan chan *ethtypes.Header
	sync.Mutex
}

func (h *headerSubscription) close() {
	h.Lock()
	defer h.Unlock()
	if h.sub != nil {
		h.sub.Unsubscribe()
		h.sub = nil
	}
	h.headerChan = nil
}

// Wait blocks until tx is mined, returning its final Receipt. No timeout
// is enforced beyond the optional stuck-transaction replacement path: a
// submitted tx that never confirms keeps its caller waiting indefinitely
// unless ReplaceStuckTx opts into replacement.
func (c *Chain) Wait(ctx context.Context, tx *types.SentTx) (*types.Receipt, error) {
	client := c.getClient()
	if client == nil {
		return nil, c.notConnected()
	}

	startBlock, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get current block number")
	}

	if types.GetSubscriptionMode(c.config.RpcUrl) == types.WebSocketMode {
		return c.waitWS(ctx, tx, startBlock, time.Now())
	}
	return c.waitHTTP(ctx, tx, startBlock, time.Now())
}

func (c *Chain) stuckTimeout() time.Duration {
	if c.config.StuckTxTimeoutSeconds > 0 {
		return time.Duration(c.config.StuckTxTimeoutSeconds) * time.Second
	}
	return 30 * time.Second
}

func (c *Chain) waitWS(ctx context.Context, tx *types.SentTx, startBlock uint64, startTime time.Time) (*types.Receipt, error) {
	client := c.getClient()

	hs := &headerSubscription{headerChan: make(chan *ethtypes.Header)}
	defer hs.close()

	sub, err := client.SubscribeNewHead(ctx, hs.headerChan)
	if err != nil {
		return nil, errors.Wrap(err, "failed to subscribe to new headers")
	}
	hs.Lock()
	hs.sub = sub
	hs.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case err := <-sub.Err():
			return nil, errors.Wrap(err, "header subscription error")

		case header := <-hs.headerChan:
			if header == nil {
				continue
			}

			if c.config.ReplaceStuckTx && time.Since(startTime) > c.stuckTimeout() {
				if header.Number.Uint64() > startBlock+2 {
					replaced, err := c.replaceStuckTx(ctx, tx)
					if err != nil {
						return nil, err
					}
					tx = replaced
					startTime = time.Now()
					startBlock = header.Number.Uint64()
					continue
				}
			}

			receipt, err := client.TransactionReceipt(ctx, common.HexToHash(tx.Hash))
			if err != nil {
				if errors.Is(err, ethereum.NotFound) {
					continue
				}
				return nil, errors.Wrap(err, "failed to get transaction receipt")
			}

			if header.Number.Uint64() < receipt.BlockNumber.Uint64()+c.config.WaitNBlocks {
				continue
			}

			return receiptFromEth(receipt), nil
		}
	}
}

func (c *Chain) waitHTTP(ctx context.Context, tx *types.SentTx, startBlock uint64, startTime time.Time) (*types.Receipt, error) {
	client := c.getClient()

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-ticker.C:
			if c.config.ReplaceStuckTx && time.Since(startTime) > c.stuckTimeout() {
				currentBlock, err := client.BlockNumber(ctx)
				if err != nil {
					return nil, errors.Wrap(err, "failed to get current block number")
				}
				if currentBlock > startBlock+2 {
					replaced, err := c.replaceStuckTx(ctx, tx)
					if err != nil {
						return nil, err
					}
					tx = replaced
					startTime = time.Now()
					startBlock = currentBlock
					continue
				}
			}

			receipt, err := client.TransactionReceipt(ctx, common.HexToHash(tx.Hash))
			if err != nil {
				if errors.Is(err, ethereum.NotFound) {
					continue
				}
				return nil, errors.Wrap(err, "failed to get transaction receipt")
			}

			currentBlock, err := client.BlockNumber(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "failed to get current block number")
			}
			if currentBlock < receipt.BlockNumber.Uint64()+c.config.WaitNBlocks {
				continue
			}

			return receiptFromEth(receipt), nil
		}
	}
}

func receiptFromEth(r *ethtypes.Receipt) *types.Receipt {
	return &types.Receipt{
		TxHash:      r.TxHash.Hex(),
		BlockNumber: r.BlockNumber.Uint64(),
		Successful:  r.Status == ethtypes.ReceiptStatusSuccessful,
	}
}

// replaceStuckTx resubmits tx's nonce at a bumped gas price. Only
// reached when config.ReplaceStuckTx is set.
func (c *Chain) replaceStuckTx(ctx context.Context, tx *types.SentTx) (*types.SentTx, error) {
	client := c.getClient()
	if client == nil {
		return nil, c.notConnected()
	}

	oldTx, isPending, err := client.TransactionByHash(ctx, common.HexToHash(tx.Hash))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction by hash")
	}
	if !isPending {
		return tx, nil
	}

	newGasPrice, err := c.bumpedGasPrice(ctx, oldTx.GasPrice())
	if err != nil {
		return nil, err
	}

	s, err := c.getSigner()
	if err != nil {
		return nil, err
	}

	var newTx *ethtypes.Transaction
	if c.config.TxType == TxTypeEIP1559 {
		newTx = ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   oldTx.ChainId(),
			Nonce:     oldTx.Nonce(),
			GasTipCap: oldTx.GasTipCap(),
			GasFeeCap: newGasPrice,
			Gas:       oldTx.Gas(),
			To:        oldTx.To(),
			Value:     oldTx.Value(),
			Data:      oldTx.Data(),
		})
	} else {
		newTx = ethtypes.NewTransaction(oldTx.Nonce(), *oldTx.To(), oldTx.Value(), oldTx.Gas(), newGasPrice, oldTx.Data())
	}

	chainID := new(big.Int).SetUint64(c.config.ChainID)
	signedTx, err := s.SignTx(newTx, chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign replacement transaction")
	}
	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return nil, errors.Wrap(err, "failed to send replacement transaction")
	}

	return &types.SentTx{Hash: signedTx.Hash().Hex(), Nonce: oldTx.Nonce()}, nil
}

func (c *Chain) bumpedGasPrice(ctx context.Context, oldGasPrice *big.Int) (*big.Int, error) {
	var current *big.Int
	var err error

	if c.config.TxType == TxTypeEIP1559 {
		priced, err := c.getEIP1559GasPrice(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get EIP-1559 gas price")
		}
		current = priced.MaxFeePerGas
	} else {
		current, err = c.getLegacyGasPrice(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get gas price")
		}
	}

	minGasPrice := new(big.Int).Div(new(big.Int).Mul(oldGasPrice, big.NewInt(gasIncreaseFactor)), big.NewInt(100))
	if current.Cmp(minGasPrice) > 0 {
		return current, nil
	}
	return minGasPrice, nil
}
