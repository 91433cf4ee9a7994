// Package relayer executes accepted intents against the opposite chain:
// nonce acquisition, amount normalization, EIP-712 signing, submission
// with the fixed gas limit, and lifecycle tracking of the outbound
// transaction through the pending -> confirmed/failed state machine
// persisted in the store.
package relayer

import (
	"context"
	"math/big"
	"time"

	relayererrors "github.com/assetbridge-io/relayer/common/errors"
	"github.com/assetbridge-io/relayer/common/types"
	"github.com/assetbridge-io/relayer/dedup"
	"github.com/assetbridge-io/relayer/txstore"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Relayer turns deduplicated intents into destination-chain transactions.
// Each Handle* call is one relay task: independent of every other, safe
// to run concurrently, and catching its own errors so a failed relay
// never tears down the ingestion path.
type Relayer struct {
	chains types.ChainRegistry
	store  txstore.Store
	index  *dedup.Index
	logger *logrus.Logger
}

func New(chains types.ChainRegistry, store txstore.Store, index *dedup.Index, logger *logrus.Logger) *Relayer {
	return &Relayer{
		chains: chains,
		store:  store,
		index:  index,
		logger: logger,
	}
}

// HandleBuy relays an L1 AssetsBuy intent as an L2 executeBuy. The
// intent's eventHash has already been claimed in the DedupIndex by the
// ingestor; any failure before a transaction is submitted releases that
// claim so the backfiller can rediscover the event on a later sweep.
func (r *Relayer) HandleBuy(ctx context.Context, intent *types.BuyIntent) {
	log := r.logger.WithFields(logrus.Fields{
		"kind":      types.KindBuy,
		"user":      intent.User,
		"eventHash": intent.EventHash,
	})

	src := r.chains.Get(types.L1)
	dest := r.chains.Get(types.L2)

	nonce, err := r.nextNonce(ctx, dest, intent.User)
	if err != nil {
		r.abandonBeforeSubmit(log, intent.EventHash, err)
		return
	}

	decimals, err := src.Decimals(ctx, intent.AssetIn)
	if err != nil {
		r.abandonBeforeSubmit(log, intent.EventHash, relayererrors.NewChainError("decimals", err))
		return
	}

	amount, humanAmount, err := NormalizeAmount(intent.AmountIn, decimals)
	if err != nil {
		r.abandonBeforeSubmit(log, intent.EventHash, err)
		return
	}

	domainSeparator, err := dest.DomainSeparator(ctx)
	if err != nil {
		r.abandonBeforeSubmit(log, intent.EventHash, relayererrors.NewChainError("DOMAIN_SEPARATOR", err))
		return
	}

	sig, err := dest.SignBuyIntent(domainSeparator, intent.User, intent.L2TargetToken, amount, nonce, intent.Deadline)
	if err != nil {
		r.abandonBeforeSubmit(log, intent.EventHash, err)
		return
	}

	sentTx, err := dest.ExecuteBuy(ctx, intent.User, intent.L2TargetToken, amount, big.NewInt(0), nonce, intent.Deadline, sig)
	if err != nil {
		r.handleSubmitError(log, intent.EventHash, err)
		return
	}

	record := &types.RelayRecord{
		ID:          uuid.NewString(),
		Chain:       types.L2,
		Kind:        types.KindBuy,
		User:        intent.User,
		Amount:      humanAmount,
		SourceToken: intent.AssetIn,
		DestToken:   intent.L2TargetToken,
		EventHash:   intent.EventHash,
		RelayHash:   sentTx.Hash,
		Status:      types.StatusPending,
		Timestamp:   time.Now().UnixMilli(),
	}

	r.trackSubmitted(ctx, log, dest, sentTx, record)
}

// HandleSell relays an L2 ASSETS_SOLD intent as an L1 withdraw. The
// withdrawal argument is the user's current LP share for the target
// asset, read from the L1 contract, not the event's raw amount.
func (r *Relayer) HandleSell(ctx context.Context, intent *types.SellIntent) {
	log := r.logger.WithFields(logrus.Fields{
		"kind":      types.KindSell,
		"user":      intent.User,
		"eventHash": intent.EventHash,
	})

	dest := r.chains.Get(types.L1)

	nonce, err := r.nextNonce(ctx, dest, intent.User)
	if err != nil {
		r.abandonBeforeSubmit(log, intent.EventHash, err)
		return
	}

	lpShare, err := dest.GetUserLpShare(ctx, intent.User, intent.TargetL1Asset)
	if err != nil {
		r.abandonBeforeSubmit(log, intent.EventHash, relayererrors.NewChainError("getUserLpShare", err))
		return
	}

	humanShare := lpShare.String()

	domainSeparator, err := dest.DomainSeparator(ctx)
	if err != nil {
		r.abandonBeforeSubmit(log, intent.EventHash, relayererrors.NewChainError("DOMAIN_SEPARATOR", err))
		return
	}

	sig, err := dest.SignSellIntent(domainSeparator, intent.User, intent.TargetL1Asset, nonce, intent.Deadline)
	if err != nil {
		r.abandonBeforeSubmit(log, intent.EventHash, err)
		return
	}

	sentTx, err := dest.Withdraw(ctx, intent.User, intent.TargetL1Asset, lpShare, nonce, intent.Deadline, sig)
	if err != nil {
		r.handleSubmitError(log, intent.EventHash, err)
		return
	}

	record := &types.RelayRecord{
		ID:          uuid.NewString(),
		Chain:       types.L1,
		Kind:        types.KindSell,
		User:        intent.User,
		Amount:      humanShare,
		SourceToken: intent.TokenToSell,
		DestToken:   intent.TargetL1Asset,
		EventHash:   intent.EventHash,
		RelayHash:   sentTx.Hash,
		Status:      types.StatusPending,
		Timestamp:   time.Now().UnixMilli(),
	}

	r.trackSubmitted(ctx, log, dest, sentTx, record)
}

// nextNonce reads usedNonces(user) on the destination contract and
// returns its successor. Two concurrent relays for the same user will
// observe the same value; the second submission is rejected on-chain and
// surfaces as a TxError, which is the retry path this design relies on.
func (r *Relayer) nextNonce(ctx context.Context, dest types.ChainClient, user string) (*big.Int, error) {
	used, err := dest.UsedNonces(ctx, user)
	if err != nil {
		return nil, relayererrors.NewChainError("usedNonces", err)
	}
	return new(big.Int).Add(used, big.NewInt(1)), nil
}

// trackSubmitted persists the PENDING record for a freshly submitted
// transaction, claims its relay hash, then blocks until the receipt
// arrives and flips the record to its terminal status.
func (r *Relayer) trackSubmitted(ctx context.Context, log *logrus.Entry, dest types.ChainClient, sentTx *types.SentTx, record *types.RelayRecord) {
	log = log.WithField("relayHash", sentTx.Hash)

	if _, err := r.store.UpsertByID(ctx, record); err != nil {
		log.WithError(err).Error("failed to persist pending relay record")
		return
	}
	r.index.ContainsOrAdd(sentTx.Hash)

	log.Info("relay transaction submitted")

	receipt, err := dest.Wait(ctx, sentTx)
	if err != nil {
		log.WithError(err).Error("failed waiting for relay transaction receipt")
		return
	}

	status := types.StatusConfirmed
	if !receipt.Successful {
		status = types.StatusFailed
	}

	changed, err := r.store.UpdateStatusByHash(ctx, sentTx.Hash, status)
	if err != nil {
		log.WithError(err).Error("failed to update relay record status")
		return
	}

	log.WithFields(logrus.Fields{
		"status":  status,
		"changed": changed,
		"block":   receipt.BlockNumber,
	}).Info("relay transaction finalized")
}

// abandonBeforeSubmit handles every failure that happens before a
// transaction exists: log it and release the event hash so the next
// backfill sweep retries the intent.
func (r *Relayer) abandonBeforeSubmit(log *logrus.Entry, eventHash string, err error) {
	log.WithError(err).Error("abandoning relay before submission")
	r.index.Remove(eventHash)
}

// handleSubmitError distinguishes the "already known" soft condition
// (another attempt owns this hash: warn, keep the dedup claim, create no
// record) from a genuine rejection (release the claim for retry).
func (r *Relayer) handleSubmitError(log *logrus.Entry, eventHash string, err error) {
	var txErr *relayererrors.TxError
	if errors.As(err, &txErr) && txErr.IsAlreadyKnown() {
		log.WithError(err).Warn("relay transaction already known, skipping")
		return
	}

	log.WithError(err).Error("relay transaction submission rejected")
	r.index.Remove(eventHash)
}
