package types

import (
	"sync"

	relayererrors "github.com/assetbridge-io/relayer/common/errors"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// EventName discriminates the two source-chain events this relayer
// observes.
type EventName string

const (
	EventAssetsBuy  EventName = "AssetsBuy"
	EventAssetsSold EventName = "ASSETS_SOLD"
)

// LogRef, ReceiptRef and TxRef mirror the handful of shapes an event
// delivery path may wrap a transaction hash in, depending on how far
// through normalization the event travelled before reaching the
// ingestor: a raw log, a synthesized receipt, or a full transaction
// object. The ingestor must tolerate all of them regardless
// of which one a given ChainClient implementation populates.
type LogRef struct {
	TransactionHash string
}

type ReceiptRef struct {
	TransactionHash string
}

type TxRef struct {
	Hash string
}

// ChainEvent is a decoded source-chain event: already discriminated into
// an EventName and decoded into a Buy or Sell intent by the ChainClient,
// but still carrying the raw hash-bearing fields so the ingestor can run
// its own field-probing independent of how the client decoded it.
type ChainEvent struct {
	Chain           ChainTag
	EventName       EventName
	BlockNumber     uint64
	TransactionHash string
	Log             *LogRef
	Receipt         *ReceiptRef
	Transaction     *TxRef

	Buy  *BuyIntent
	Sell *SellIntent
}

// ExtractEventHash probes, in order, the fields that might carry the
// source transaction hash: TransactionHash, Log.TransactionHash,
// Receipt.TransactionHash, Transaction.Hash. If none are present it
// returns a MissingHashError and the caller must drop the event.
func (e *ChainEvent) ExtractEventHash() (string, error) {
	if e.TransactionHash != "" {
		return e.TransactionHash, nil
	}
	if e.Log != nil && e.Log.TransactionHash != "" {
		return e.Log.TransactionHash, nil
	}
	if e.Receipt != nil && e.Receipt.TransactionHash != "" {
		return e.Receipt.TransactionHash, nil
	}
	if e.Transaction != nil && e.Transaction.Hash != "" {
		return e.Transaction.Hash, nil
	}
	return "", &relayererrors.MissingHashError{EventName: string(e.EventName)}
}

// Subscription wraps a live go-ethereum log subscription together with
// its delivery channel so both can be torn down atomically from Close,
// regardless of which goroutine currently holds them.
type Subscription struct {
	Subscription event.Subscription
	EventChan    chan ethtypes.Log
	sync.Mutex
}

// Close unsubscribes and drains the channel reference. Safe to call more
// than once and from multiple goroutines.
func (s *Subscription) Close() {
	s.Lock()
	defer s.Unlock()

	if s.Subscription != nil {
		s.Subscription.Unsubscribe()
		s.Subscription = nil
	}
	s.EventChan = nil
}
