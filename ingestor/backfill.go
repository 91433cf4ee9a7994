package ingestor

import (
	"context"
	"time"

	"github.com/assetbridge-io/relayer/common/types"
	"github.com/sirupsen/logrus"
)

const (
	defaultBackfillInterval = 5 * time.Minute
	defaultBackfillBlocks   = uint64(1000)
)

// BlockSource is the slice of ChainClient the backfiller needs: the
// current head for windowing and the historical log query itself.
type BlockSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	QueryLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.ChainEvent, error)
}

// Backfiller periodically sweeps the trailing block window of one chain
// and feeds every event it finds through the ingestor's dedup pipeline.
// Sweeps deliberately overlap; idempotence comes from dedup, not from
// window bookkeeping. This is the authoritative recovery path for events
// the streaming subscription silently dropped.
type Backfiller struct {
	chain    types.ChainTag
	source   BlockSource
	ingestor *Ingestor
	logger   *logrus.Logger

	interval time.Duration
	blocks   uint64

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewBackfiller builds a Backfiller sweeping `blocks` blocks every
// `interval`. Zero values select the defaults of 1000 blocks every
// 5 minutes.
func NewBackfiller(chain types.ChainTag, source BlockSource, ing *Ingestor, logger *logrus.Logger, interval time.Duration, blocks uint64) *Backfiller {
	if interval <= 0 {
		interval = defaultBackfillInterval
	}
	if blocks == 0 {
		blocks = defaultBackfillBlocks
	}

	return &Backfiller{
		chain:    chain,
		source:   source,
		ingestor: ing,
		logger:   logger,
		interval: interval,
		blocks:   blocks,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the sweep loop in the background.
func (b *Backfiller) Start(ctx context.Context) {
	go func() {
		defer close(b.doneChan)

		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stopChan:
				return
			case <-ticker.C:
				if err := b.Sweep(ctx); err != nil {
					b.logger.WithField("chain", b.chain).WithError(err).Error("backfill sweep failed")
				}
			}
		}
	}()
}

// Stop ends the sweep loop and waits for the current sweep to finish.
func (b *Backfiller) Stop() {
	close(b.stopChan)
	<-b.doneChan
}

// Sweep performs one pass: query the last `blocks` blocks and push every
// returned event through the ingestor. Errors abort only this pass; the
// next tick retries with a fresh window.
func (b *Backfiller) Sweep(ctx context.Context) error {
	currentBlock, err := b.source.BlockNumber(ctx)
	if err != nil {
		return err
	}

	fromBlock := uint64(0)
	if currentBlock > b.blocks {
		fromBlock = currentBlock - b.blocks
	}

	events, err := b.source.QueryLogs(ctx, fromBlock, currentBlock)
	if err != nil {
		return err
	}

	if len(events) > 0 {
		b.logger.WithFields(logrus.Fields{
			"chain":     b.chain,
			"fromBlock": fromBlock,
			"toBlock":   currentBlock,
			"events":    len(events),
		}).Info("backfill sweep found events")
	}

	for _, event := range events {
		b.ingestor.Process(ctx, event)
	}

	return nil
}
