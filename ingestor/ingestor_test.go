package ingestor

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/assetbridge-io/relayer/common/types"
	"github.com/assetbridge-io/relayer/dedup"
	"github.com/assetbridge-io/relayer/txstore"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	buys  []*types.BuyIntent
	sells []*types.SellIntent
}

func (d *recordingDispatcher) HandleBuy(ctx context.Context, intent *types.BuyIntent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buys = append(d.buys, intent)
}

func (d *recordingDispatcher) HandleSell(ctx context.Context, intent *types.SellIntent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sells = append(d.sells, intent)
}

func (d *recordingDispatcher) buyCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buys)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func buyEvent(hash string) types.ChainEvent {
	return types.ChainEvent{
		Chain:           types.L1,
		EventName:       types.EventAssetsBuy,
		TransactionHash: hash,
		Buy: &types.BuyIntent{
			User:      "0xUser",
			AssetIn:   "0xToken",
			AmountIn:  big.NewInt(1),
			Deadline:  big.NewInt(1),
			EventHash: hash,
		},
	}
}

func TestProcess_DuplicateSuppressionAcrossPaths(t *testing.T) {
	ctx := context.Background()
	dispatcher := &recordingDispatcher{}
	ing := New(types.L1, dedup.New(), txstore.NewMemStore(), dispatcher, quietLogger())

	// Same hash arrives once by stream and once by backfill sweep.
	ing.Process(ctx, buyEvent("0xaa"))
	ing.Process(ctx, buyEvent("0xaa"))
	ing.WaitForRelays()

	assert.Equal(t, 1, dispatcher.buyCount(), "exactly one relay must be dispatched per event hash")
}

func TestProcess_CrashRecoveryViaStoreCheck(t *testing.T) {
	ctx := context.Background()
	store := txstore.NewMemStore()

	// A previous process persisted this event; the fresh index knows
	// nothing about it yet.
	_, err := store.UpsertByID(ctx, &types.RelayRecord{
		ID:        "r1",
		Chain:     types.L2,
		Kind:      types.KindBuy,
		EventHash: "0xbb",
		Status:    types.StatusConfirmed,
	})
	require.NoError(t, err)

	dispatcher := &recordingDispatcher{}
	ing := New(types.L1, dedup.New(), store, dispatcher, quietLogger())

	ing.Process(ctx, buyEvent("0xbb"))
	ing.WaitForRelays()

	assert.Zero(t, dispatcher.buyCount(), "a persisted hash must never be relayed again after restart")
}

func TestProcess_HashExtractedFromNestedLogField(t *testing.T) {
	ctx := context.Background()
	dispatcher := &recordingDispatcher{}
	ing := New(types.L1, dedup.New(), txstore.NewMemStore(), dispatcher, quietLogger())

	event := buyEvent("")
	event.TransactionHash = ""
	event.Log = &types.LogRef{TransactionHash: "0xcc"}
	event.Buy.EventHash = "0xcc"

	ing.Process(ctx, event)
	ing.WaitForRelays()

	assert.Equal(t, 1, dispatcher.buyCount(), "a hash carried only on log.transactionHash must be accepted")
}

func TestProcess_NoHashAnywhereDropsWithoutIndexChange(t *testing.T) {
	ctx := context.Background()
	index := dedup.New()
	dispatcher := &recordingDispatcher{}
	ing := New(types.L1, index, txstore.NewMemStore(), dispatcher, quietLogger())

	event := buyEvent("")
	event.TransactionHash = ""

	ing.Process(ctx, event)
	ing.WaitForRelays()

	assert.Zero(t, dispatcher.buyCount())
	assert.Zero(t, index.Size(), "a dropped hashless event must not touch the dedup index")
}

func TestProcess_StoreErrorReleasesClaim(t *testing.T) {
	ctx := context.Background()
	index := dedup.New()
	dispatcher := &recordingDispatcher{}
	ing := New(types.L1, index, &failingStore{}, dispatcher, quietLogger())

	ing.Process(ctx, buyEvent("0xdd"))
	ing.WaitForRelays()

	assert.Zero(t, dispatcher.buyCount())
	assert.False(t, index.ContainsOrAdd("0xdd"), "a store failure must release the in-memory claim")
}

// failingStore errors every durable check so the ingestor's rollback
// path can be observed.
type failingStore struct {
	txstore.Store
}

func (f *failingStore) HashExists(ctx context.Context, hash string) (bool, error) {
	return false, errors.New("store unavailable")
}
