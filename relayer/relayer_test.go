package relayer

import (
	"context"
	"math/big"
	"sync"
	"testing"

	relayererrors "github.com/assetbridge-io/relayer/common/errors"
	"github.com/assetbridge-io/relayer/common/types"
	"github.com/assetbridge-io/relayer/dedup"
	"github.com/assetbridge-io/relayer/txstore"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChain implements the slices of types.ChainClient the relayer
// touches; everything else panics via the embedded nil interface, which
// is exactly what a test wants from an unexpected call.
type fakeChain struct {
	types.ChainClient

	mu sync.Mutex

	usedNonces  *big.Int
	decimals    uint8
	lpShare     *big.Int
	readErr     error
	submitErr   error
	waitSuccess bool
	waitErr     error

	executeBuyCalls []executeBuyCall
	withdrawCalls   []withdrawCall
	sentHash        string
}

type executeBuyCall struct {
	user, l2Token   string
	amount, minOut  *big.Int
	nonce, deadline *big.Int
	sig             []byte
}

type withdrawCall struct {
	user, asset     string
	lpShare         *big.Int
	nonce, deadline *big.Int
}

func (f *fakeChain) UsedNonces(ctx context.Context, user string) (*big.Int, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.usedNonces, nil
}

func (f *fakeChain) Decimals(ctx context.Context, token string) (uint8, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.decimals, nil
}

func (f *fakeChain) GetUserLpShare(ctx context.Context, user, asset string) (*big.Int, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.lpShare, nil
}

func (f *fakeChain) DomainSeparator(ctx context.Context) ([32]byte, error) {
	var ds [32]byte
	ds[0] = 0xd5
	return ds, f.readErr
}

func (f *fakeChain) SignBuyIntent(domainSeparator [32]byte, user, l2Token string, amount, nonce, deadline *big.Int) ([]byte, error) {
	return []byte("buy-sig"), nil
}

func (f *fakeChain) SignSellIntent(domainSeparator [32]byte, user, assetToWithdraw string, nonce, deadline *big.Int) ([]byte, error) {
	return []byte("sell-sig"), nil
}

func (f *fakeChain) ExecuteBuy(ctx context.Context, user, l2Token string, amount, minOut, nonce, deadline *big.Int, sig []byte) (*types.SentTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.executeBuyCalls = append(f.executeBuyCalls, executeBuyCall{user, l2Token, amount, minOut, nonce, deadline, sig})
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &types.SentTx{Hash: f.sentHash}, nil
}

func (f *fakeChain) Withdraw(ctx context.Context, user, asset string, lpShare, nonce, deadline *big.Int, sig []byte) (*types.SentTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.withdrawCalls = append(f.withdrawCalls, withdrawCall{user, asset, lpShare, nonce, deadline})
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &types.SentTx{Hash: f.sentHash}, nil
}

func (f *fakeChain) Wait(ctx context.Context, tx *types.SentTx) (*types.Receipt, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return &types.Receipt{TxHash: tx.Hash, BlockNumber: 100, Successful: f.waitSuccess}, nil
}

type fakeRegistry map[types.ChainTag]types.ChainClient

func (r fakeRegistry) Get(tag types.ChainTag) types.ChainClient { return r[tag] }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func buyIntent() *types.BuyIntent {
	return &types.BuyIntent{
		User:          "0xUserUserUserUserUserUserUserUserUserUse",
		AssetIn:       "0xTokenL1",
		AmountIn:      big.NewInt(1_000_000),
		L2TargetToken: "0xTokenL2",
		Deadline:      big.NewInt(9999999999),
		SourceNonce:   big.NewInt(7),
		EventHash:     "0xevent",
	}
}

func TestHandleBuy_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := txstore.NewMemStore()
	index := dedup.New()
	index.ContainsOrAdd("0xevent")

	l1 := &fakeChain{decimals: 6}
	l2 := &fakeChain{usedNonces: big.NewInt(4), sentHash: "0xrelay", waitSuccess: true}
	rel := New(fakeRegistry{types.L1: l1, types.L2: l2}, store, index, quietLogger())

	rel.HandleBuy(ctx, buyIntent())

	require.Len(t, l2.executeBuyCalls, 1)
	call := l2.executeBuyCalls[0]
	assert.Equal(t, "1000000000000000000", call.amount.String(), "6-decimal 1_000_000 must scale to 1e18")
	assert.Equal(t, "0", call.minOut.String())
	assert.Equal(t, "5", call.nonce.String(), "nonce must be usedNonces+1")
	assert.Equal(t, []byte("buy-sig"), call.sig)

	record, err := store.FindByHash(ctx, "0xevent")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, types.L2, record.Chain)
	assert.Equal(t, types.KindBuy, record.Kind)
	assert.Equal(t, "1", record.Amount)
	assert.Equal(t, "0xTokenL1", record.SourceToken)
	assert.Equal(t, "0xTokenL2", record.DestToken)
	assert.Equal(t, "0xrelay", record.RelayHash)
	assert.Equal(t, types.StatusConfirmed, record.Status, "successful receipt must confirm the record")

	assert.True(t, index.ContainsOrAdd("0xrelay"), "relay hash must have been added to the dedup index")
}

func TestHandleBuy_RevertedReceiptFailsRecord(t *testing.T) {
	ctx := context.Background()
	store := txstore.NewMemStore()
	index := dedup.New()
	index.ContainsOrAdd("0xevent")

	l1 := &fakeChain{decimals: 6}
	l2 := &fakeChain{usedNonces: big.NewInt(0), sentHash: "0xrelay", waitSuccess: false}
	rel := New(fakeRegistry{types.L1: l1, types.L2: l2}, store, index, quietLogger())

	rel.HandleBuy(ctx, buyIntent())

	record, err := store.FindByHash(ctx, "0xrelay")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, types.StatusFailed, record.Status)
}

func TestHandleBuy_AlreadyKnownIsSoft(t *testing.T) {
	ctx := context.Background()
	store := txstore.NewMemStore()
	index := dedup.New()
	index.ContainsOrAdd("0xevent")

	l1 := &fakeChain{decimals: 6}
	l2 := &fakeChain{
		usedNonces: big.NewInt(0),
		submitErr:  relayererrors.NewTxError("submit", errors.New("tx already known")),
	}
	rel := New(fakeRegistry{types.L1: l1, types.L2: l2}, store, index, quietLogger())

	rel.HandleBuy(ctx, buyIntent())

	record, err := store.FindByHash(ctx, "0xevent")
	require.NoError(t, err)
	assert.Nil(t, record, "already-known submissions must not create a record")
	assert.True(t, index.ContainsOrAdd("0xevent"), "already-known must keep the dedup claim")
}

func TestHandleBuy_PreSubmitFailureReleasesDedupClaim(t *testing.T) {
	ctx := context.Background()
	store := txstore.NewMemStore()
	index := dedup.New()
	index.ContainsOrAdd("0xevent")

	l1 := &fakeChain{decimals: 6}
	l2 := &fakeChain{readErr: errors.New("rpc down")}
	rel := New(fakeRegistry{types.L1: l1, types.L2: l2}, store, index, quietLogger())

	rel.HandleBuy(ctx, buyIntent())

	assert.Empty(t, l2.executeBuyCalls, "no submission may happen after a failed read")
	assert.False(t, index.ContainsOrAdd("0xevent"), "claim must be released so the backfiller retries")
}

func TestHandleSell_UsesLpShareAndWithdraws(t *testing.T) {
	ctx := context.Background()
	store := txstore.NewMemStore()
	index := dedup.New()
	index.ContainsOrAdd("0xsell")

	l1 := &fakeChain{
		usedNonces:  big.NewInt(9),
		lpShare:     big.NewInt(42),
		sentHash:    "0xrelaysell",
		waitSuccess: true,
	}
	rel := New(fakeRegistry{types.L1: l1, types.L2: &fakeChain{}}, store, index, quietLogger())

	rel.HandleSell(ctx, &types.SellIntent{
		User:          "0xSeller",
		TokenToSell:   "0xTokenL2",
		AmountIn:      big.NewInt(500),
		TargetL1Asset: "0xTokenL1",
		Deadline:      big.NewInt(9999999999),
		SourceNonce:   big.NewInt(3),
		EventHash:     "0xsell",
	})

	require.Len(t, l1.withdrawCalls, 1)
	call := l1.withdrawCalls[0]
	assert.Equal(t, "42", call.lpShare.String(), "withdraw amount must be the on-chain lp share, not the event amount")
	assert.Equal(t, "10", call.nonce.String())

	record, err := store.FindByHash(ctx, "0xsell")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, types.L1, record.Chain)
	assert.Equal(t, types.KindSell, record.Kind)
	assert.Equal(t, "42", record.Amount)
	assert.Equal(t, types.StatusConfirmed, record.Status)
}
