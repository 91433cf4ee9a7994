// Package evm implements types.ChainClient against an Ethereum-compatible
// JSON-RPC endpoint, for either leg of the bridge: the AssetsBuy and
// ASSETS_SOLD event pair on the read side, executeBuy and withdraw on
// the write side.
package evm

import (
	"context"
	"sync"
	"time"

	"github.com/assetbridge-io/relayer/chains/evm/signer"
	relayererrors "github.com/assetbridge-io/relayer/common/errors"
	"github.com/assetbridge-io/relayer/common/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// TxTypeLegacy represents the legacy transaction type.
	TxTypeLegacy = 0
	// TxTypeEIP1559 represents the EIP-1559 transaction type.
	TxTypeEIP1559 = 2
	// ExecuteGasLimit is the fixed gas limit for executeBuy and withdraw
	// submissions.
	ExecuteGasLimit = uint64(500000)
	// waitPollInterval is how often WaitTransactionConfirmation polls
	// for a receipt over HTTP.
	waitPollInterval = time.Second
)

var _ types.ChainClient = (*Chain)(nil)

// Chain is the concrete EVM implementation of types.ChainClient.
// Dependencies that may be swapped out on reconnect (client) or were
// never configured (signer, on a read-only deployment) are each guarded
// by their own mutex rather than one lock for the whole struct.
type Chain struct {
	config *types.ChainConfig
	logger *logrus.Logger

	clientMutex sync.RWMutex
	client      *ethclient.Client

	signerMutex sync.RWMutex
	signer      signer.Signer

	eventHandler interface {
		Start() error
		Stop()
		Errors() <-chan error
		Done() <-chan struct{}
	}
	eventHandlerMutex sync.RWMutex
	activeEventName   types.EventName
	activeEventChan   chan<- types.ChainEvent

	// errChan is the merged transport-event feed Errors() returns:
	// forwarded handler errors plus network-changed notifications
	// detected against the chain ID observed at connect time.
	errChan         chan error
	observedChainID uint64
}

// New dials config.RpcUrl and, if config.PrivateKey is set, constructs
// the operator signer used for EIP-712 signing and tx submission. A
// chain with no private key configured can still serve reads and
// subscriptions (e.g. a read-only L1 watcher), but TransactionSender
// calls return ErrMissingOwnerKey.
func New(config *types.ChainConfig, logger *logrus.Logger) (*Chain, error) {
	client, err := ethclient.Dial(config.RpcUrl)
	if err != nil {
		return nil, relayererrors.NewConnectionError(config.Name, errors.Wrap(err, "failed to dial rpc endpoint"))
	}

	chain := &Chain{
		config:  config,
		logger:  logger,
		client:  client,
		errChan: make(chan error, 4),
	}

	if networkID, err := client.NetworkID(context.Background()); err == nil {
		chain.observedChainID = networkID.Uint64()
	}

	if config.PrivateKey != "" {
		privKey, err := crypto.HexToECDSA(config.PrivateKey)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse private key")
		}

		s, err := signer.New(privKey)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create signer")
		}

		chain.signerMutex.Lock()
		chain.signer = s
		chain.signerMutex.Unlock()
	}

	return chain, nil
}

func (c *Chain) getClient() *ethclient.Client {
	c.clientMutex.RLock()
	defer c.clientMutex.RUnlock()
	return c.client
}

func (c *Chain) getSigner() (signer.Signer, error) {
	c.signerMutex.RLock()
	defer c.signerMutex.RUnlock()
	if c.signer == nil {
		return nil, relayererrors.ErrMissingOwnerKey
	}
	return c.signer, nil
}

// BlockNumber is the Supervisor's health probe. It also guards against
// the "network-changed" transport event: an RPC endpoint that starts
// answering for a different chain ID than the one observed at connect
// time, typically a failover node behind the same URL.
func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	client := c.getClient()
	if client == nil {
		return 0, c.notConnected()
	}

	if networkID, err := client.NetworkID(ctx); err == nil {
		if current := networkID.Uint64(); c.observedChainID != 0 && current != c.observedChainID {
			c.notifyError(relayererrors.NewNetworkChangedError(c.config.Name, c.observedChainID, current))
			c.observedChainID = current
		} else if c.observedChainID == 0 {
			c.observedChainID = current
		}
	}

	blockNumber, err := client.BlockNumber(ctx)
	if err != nil {
		return 0, relayererrors.NewConnectionError(c.config.Name, err)
	}
	return blockNumber, nil
}

func (c *Chain) notifyError(err error) {
	select {
	case c.errChan <- err:
	default:
	}
}

func (c *Chain) GetConfig() *types.ChainConfig {
	return c.config
}

// Close tears down the subscription and the RPC client. Idempotent.
func (c *Chain) Close() error {
	c.Unsubscribe()

	c.clientMutex.Lock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	c.clientMutex.Unlock()

	return nil
}

// Reconnect re-dials the RPC client and restarts the event subscription
// against the new client. It is the BlockchainClient.Reconnect half of
// the Supervisor contract.
func (c *Chain) Reconnect(ctx context.Context) error {
	c.clientMutex.Lock()
	if c.client != nil {
		c.client.Close()
	}
	client, err := ethclient.Dial(c.config.RpcUrl)
	if err != nil {
		c.clientMutex.Unlock()
		return relayererrors.NewConnectionError(c.config.Name, errors.Wrap(err, "failed to redial rpc endpoint"))
	}
	c.client = client
	c.clientMutex.Unlock()

	c.eventHandlerMutex.RLock()
	eventChan := c.activeEventChan
	handler := c.eventHandler
	c.eventHandlerMutex.RUnlock()

	if handler == nil || eventChan == nil {
		return nil
	}

	return c.Subscribe(ctx, eventChan)
}

// CheckConnection is the BlockchainClient.CheckConnection half of the
// Supervisor contract.
func (c *Chain) CheckConnection(ctx context.Context) error {
	_, err := c.BlockNumber(ctx)
	return err
}
