package handler

import (
	"math/big"
	"time"

	"github.com/assetbridge-io/relayer/common/contracts"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// StartHTTPPolling polls for this handler's bridge event over the
// existing HTTP client, used when a WebSocket endpoint could not be
// dialed. The backfiller's sweep cadence alone is too slow to stand in
// for the live stream.
func (h *EventHandler) StartHTTPPolling() error {
	h.pollingTicker = time.NewTicker(pollingInterval)

	h.logger.WithFields(logrus.Fields{
		"chain":    h.config.Name,
		"event":    h.eventName,
		"interval": pollingInterval,
	}).Info("starting HTTP polling for bridge event")

	go func() {
		for {
			select {
			case <-h.ctx.Done():
				return
			case <-h.pollingTicker.C:
				if err := h.poll(); err != nil {
					h.logger.WithField("chain", h.config.Name).WithError(err).Error("poll failed")
					h.notifyError(err)
				}
			}
		}
	}()

	return nil
}

func (h *EventHandler) poll() error {
	currentBlock, err := h.httpClient.BlockNumber(h.ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get current block number")
	}

	h.lastBlockMutex.RLock()
	fromBlock := h.lastProcessedBlock
	h.lastBlockMutex.RUnlock()

	if fromBlock == 0 {
		h.lastBlockMutex.Lock()
		h.lastProcessedBlock = currentBlock
		h.lastBlockMutex.Unlock()
		return nil
	}

	if currentBlock <= fromBlock {
		return nil
	}

	toBlock := fromBlock + maxBlockRange
	if toBlock > currentBlock {
		toBlock = currentBlock
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock + 1),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{common.HexToAddress(h.config.BridgeContract)},
		Topics:    [][]common.Hash{{contracts.Bridge.Events[string(h.eventName)].ID}},
	}

	logs, err := h.httpClient.FilterLogs(h.ctx, query)
	if err != nil {
		return errors.Wrap(err, "failed to filter logs")
	}

	for _, log := range logs {
		event, err := DecodeLog(h.config.Tag, h.eventName, log)
		if err != nil {
			h.logger.WithField("chain", h.config.Name).WithError(err).Warn("failed to decode polled bridge event log")
			continue
		}
		select {
		case h.eventChan <- event:
		case <-h.ctx.Done():
			return nil
		}
	}

	h.lastBlockMutex.Lock()
	h.lastProcessedBlock = toBlock
	h.lastBlockMutex.Unlock()

	return nil
}
