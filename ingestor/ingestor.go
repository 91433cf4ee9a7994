// Package ingestor turns raw chain events into deduplicated relay
// intents and recovers dropped ones by periodic historical sweeps.
// Both paths funnel through the same Process method,
// so an event is treated identically whether it arrived by live stream
// or by backfill.
package ingestor

import (
	"context"
	"sync"

	"github.com/assetbridge-io/relayer/common/types"
	"github.com/assetbridge-io/relayer/dedup"
	"github.com/assetbridge-io/relayer/txstore"
	"github.com/sirupsen/logrus"
)

// Dispatcher receives accepted intents. The Relayer implements it; each
// Dispatch call runs as its own task and blocks until the relay settles,
// so the ingestor spawns a goroutine per accepted intent.
type Dispatcher interface {
	HandleBuy(ctx context.Context, intent *types.BuyIntent)
	HandleSell(ctx context.Context, intent *types.SellIntent)
}

// Ingestor deduplicates one chain's events and hands the survivors to
// the Dispatcher.
type Ingestor struct {
	chain      types.ChainTag
	index      *dedup.Index
	store      txstore.Store
	dispatcher Dispatcher
	logger     *logrus.Logger

	wg sync.WaitGroup
}

func New(chain types.ChainTag, index *dedup.Index, store txstore.Store, dispatcher Dispatcher, logger *logrus.Logger) *Ingestor {
	return &Ingestor{
		chain:      chain,
		index:      index,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run consumes events until eventChan closes or ctx is cancelled. It is
// the streaming half of ingestion; the backfiller calls Process directly.
func (i *Ingestor) Run(ctx context.Context, eventChan <-chan types.ChainEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			i.Process(ctx, event)
		}
	}
}

// Process runs one event through the dedup pipeline: extract the source
// hash, claim it in the in-memory index, confirm the durable store has
// never seen it, then dispatch. The in-memory check runs first so a
// duplicate costs no store round-trip; the store check recovers across
// restarts even if the index rehydration lagged.
func (i *Ingestor) Process(ctx context.Context, event types.ChainEvent) {
	log := i.logger.WithFields(logrus.Fields{
		"chain": i.chain,
		"event": event.EventName,
	})

	eventHash, err := event.ExtractEventHash()
	if err != nil {
		log.WithError(err).Warn("dropping event with no transaction hash in any known field")
		return
	}
	log = log.WithField("eventHash", eventHash)

	if i.index.ContainsOrAdd(eventHash) {
		log.Debug("dropping duplicate event: already accepted for relay")
		return
	}

	exists, err := i.store.HashExists(ctx, eventHash)
	if err != nil {
		log.WithError(err).Error("failed to check store for event hash, releasing claim")
		i.index.Remove(eventHash)
		return
	}
	if exists {
		log.Debug("dropping event: already persisted")
		return
	}

	switch {
	case event.Buy != nil:
		intent := event.Buy
		i.wg.Add(1)
		go func() {
			defer i.wg.Done()
			i.dispatcher.HandleBuy(ctx, intent)
		}()

	case event.Sell != nil:
		intent := event.Sell
		i.wg.Add(1)
		go func() {
			defer i.wg.Done()
			i.dispatcher.HandleSell(ctx, intent)
		}()

	default:
		log.Warn("dropping event carrying no decoded intent, releasing claim")
		i.index.Remove(eventHash)
	}
}

// WaitForRelays blocks until every dispatched relay task has returned.
// Used on shutdown so in-flight relays finish their current awaited
// call.
func (i *Ingestor) WaitForRelays() {
	i.wg.Wait()
}
