package types

import (
	"context"
	"math/big"
)

// ChainConfig holds the configuration for one leg of the bridge.
type ChainConfig struct {
	Name              string
	Tag               ChainTag
	ChainID           uint64
	RpcUrl            string
	TxType            uint64
	WaitNBlocks       uint64
	PrivateKey        string
	BridgeContract    string
	BackfillBlocks    uint64
	BackfillInterval  int64 // seconds
	HealthTickSeconds int64

	// ReplaceStuckTx enables replacement of stuck submissions: if a
	// relay sits unconfirmed past StuckTxTimeoutSeconds, a gas-bumped
	// replacement is attempted. Off by default: a transaction that never
	// confirms stays PENDING indefinitely.
	ReplaceStuckTx        bool
	StuckTxTimeoutSeconds int64
}

// SentTx is the result of a successful submission: a transaction hash the
// caller can later wait on for confirmation.
type SentTx struct {
	Hash  string
	Nonce uint64
}

// Receipt is the outcome of waiting on a SentTx.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	Successful  bool
}

// EventSubscriber exposes the push (streaming) path: a live subscription
// that feeds ChainEvent values to the ingestor as they are observed.
type EventSubscriber interface {
	Subscribe(ctx context.Context, eventChan chan<- ChainEvent) error
	Unsubscribe()

	// Errors surfaces transport-level failures observed by the active
	// subscription (a dropped WebSocket, a failed poll) so the
	// Supervisor can reconnect without polling the subscription's
	// internals itself.
	Errors() <-chan error
}

// LogQuerier exposes the pull (historical) path used by the
// HistoricalBackfiller to recover events the subscription path dropped.
type LogQuerier interface {
	QueryLogs(ctx context.Context, fromBlock, toBlock uint64) ([]ChainEvent, error)
}

// ContractReader exposes read-only contract calls: DOMAIN_SEPARATOR,
// usedNonces, getUserLpShare, and ERC-20 decimals.
type ContractReader interface {
	DomainSeparator(ctx context.Context) ([32]byte, error)
	UsedNonces(ctx context.Context, user string) (*big.Int, error)
	GetUserLpShare(ctx context.Context, user, asset string) (*big.Int, error)
	Decimals(ctx context.Context, token string) (uint8, error)
}

// TransactionSender exposes the write path: submitting the signed
// executeBuy/withdraw call with a fixed gas limit.
type TransactionSender interface {
	ExecuteBuy(ctx context.Context, user, l2Token string, amount *big.Int, minOut *big.Int, nonce, deadline *big.Int, sig []byte) (*SentTx, error)
	Withdraw(ctx context.Context, user, asset string, lpShare, nonce, deadline *big.Int, sig []byte) (*SentTx, error)
}

// TransactionWatcher exposes the lifecycle path: blocking until a
// submitted transaction is mined, successfully or not.
type TransactionWatcher interface {
	Wait(ctx context.Context, tx *SentTx) (*Receipt, error)
}

// IntentSigner produces the EIP-712 signatures the destination bridge
// contract verifies. The domain separator is passed in by the caller
// (read via ContractReader) so that signing itself never suspends.
type IntentSigner interface {
	SignBuyIntent(domainSeparator [32]byte, user, l2Token string, amount, nonce, deadline *big.Int) ([]byte, error)
	SignSellIntent(domainSeparator [32]byte, user, assetToWithdraw string, nonce, deadline *big.Int) ([]byte, error)
}

// ChainClient is the full abstraction one leg of the bridge is observed
// and acted on through: block-number probing (for health and backfill
// windowing), event subscription, historical log query, contract reads,
// transaction submission, and transaction confirmation.
type ChainClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	EventSubscriber
	LogQuerier
	ContractReader
	TransactionSender
	TransactionWatcher
	IntentSigner

	// Reconnect re-dials the transport and restores any active
	// subscription; driven by the Supervisor's backoff loop.
	Reconnect(ctx context.Context) error

	// GetTokenBalance reads the native (tokenAddress == "") or ERC-20
	// balance of address on this chain.
	GetTokenBalance(ctx context.Context, address, tokenAddress string) (*big.Int, error)

	// SolverAddress is the address the configured operator key submits
	// transactions from.
	SolverAddress() (string, error)

	GetConfig() *ChainConfig
	Close() error
}

// ChainRegistry looks up the ChainClient for a given leg of the bridge.
type ChainRegistry interface {
	Get(tag ChainTag) ChainClient
}
