package handler

import (
	"context"
	"math/big"

	"github.com/assetbridge-io/relayer/common/contracts"
	commontypes "github.com/assetbridge-io/relayer/common/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// StartWS dials a WebSocket client at wsURL and subscribes to this
// handler's bridge event, decoding and forwarding matches on eventChan.
func (h *EventHandler) StartWS(wsURL string) error {
	ctx, cancel := context.WithTimeout(h.ctx, contextTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, wsURL)
	if err != nil {
		return errors.Wrap(err, "failed to dial websocket endpoint")
	}
	h.wsClient = client

	blockNumber, err := client.BlockNumber(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get block number")
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(blockNumber),
		Addresses: []common.Address{common.HexToAddress(h.config.BridgeContract)},
		Topics:    [][]common.Hash{{contracts.Bridge.Events[string(h.eventName)].ID}},
	}

	logChan := make(chan ethtypes.Log)
	sub, err := client.SubscribeFilterLogs(ctx, query, logChan)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to bridge event")
	}

	h.subscription.Lock()
	h.subscription.Subscription = sub
	h.subscription.EventChan = logChan
	h.subscription.Unlock()

	h.logger.WithFields(logrus.Fields{
		"chain":       h.config.Name,
		"event":       h.eventName,
		"blockNumber": blockNumber,
	}).Info("bridge event subscription established")

	go h.consumeWS()

	return nil
}

func (h *EventHandler) consumeWS() {
	for {
		h.subscription.Lock()
		sub := h.subscription.Subscription
		eventChan := h.subscription.EventChan
		h.subscription.Unlock()

		if sub == nil || eventChan == nil {
			return
		}

		select {
		case <-h.ctx.Done():
			return

		case err := <-sub.Err():
			if err == nil {
				return
			}
			h.logger.WithField("chain", h.config.Name).WithError(err).Error("bridge event subscription error")
			h.notifyError(err)
			return

		case log, ok := <-eventChan:
			if !ok {
				return
			}
			event, err := DecodeLog(h.config.Tag, h.eventName, log)
			if err != nil {
				h.logger.WithField("chain", h.config.Name).WithError(err).Warn("failed to decode bridge event log")
				continue
			}
			select {
			case h.eventChan <- event:
			case <-h.ctx.Done():
				return
			}
		}
	}
}

// DecodeLog unpacks a raw log into a ChainEvent carrying the
// corresponding intent, for either AssetsBuy or ASSETS_SOLD.
func DecodeLog(chain commontypes.ChainTag, eventName commontypes.EventName, log ethtypes.Log) (commontypes.ChainEvent, error) {
	event := commontypes.ChainEvent{
		Chain:           chain,
		EventName:       eventName,
		BlockNumber:     log.BlockNumber,
		TransactionHash: log.TxHash.Hex(),
		Log:             &commontypes.LogRef{TransactionHash: log.TxHash.Hex()},
	}

	switch eventName {
	case commontypes.EventAssetsBuy:
		var decoded struct {
			AssetIn       common.Address
			AmountIn      *big.Int
			L2TargetToken common.Address
			Deadline      *big.Int
			Nonce         *big.Int
		}
		if err := contracts.Bridge.UnpackIntoInterface(&decoded, string(eventName), log.Data); err != nil {
			return event, errors.Wrap(err, "failed to unpack AssetsBuy log")
		}
		if len(log.Topics) < 2 {
			return event, errors.New("AssetsBuy log missing indexed user topic")
		}
		event.Buy = &commontypes.BuyIntent{
			User:          common.HexToAddress(log.Topics[1].Hex()).Hex(),
			AssetIn:       decoded.AssetIn.Hex(),
			AmountIn:      decoded.AmountIn,
			L2TargetToken: decoded.L2TargetToken.Hex(),
			Deadline:      decoded.Deadline,
			SourceNonce:   decoded.Nonce,
			EventHash:     log.TxHash.Hex(),
		}

	case commontypes.EventAssetsSold:
		var decoded struct {
			TokenToSell   common.Address
			AmountIn      *big.Int
			TargetL1Asset common.Address
			Deadline      *big.Int
			Nonce         *big.Int
		}
		if err := contracts.Bridge.UnpackIntoInterface(&decoded, string(eventName), log.Data); err != nil {
			return event, errors.Wrap(err, "failed to unpack ASSETS_SOLD log")
		}
		if len(log.Topics) < 2 {
			return event, errors.New("ASSETS_SOLD log missing indexed user topic")
		}
		event.Sell = &commontypes.SellIntent{
			User:          common.HexToAddress(log.Topics[1].Hex()).Hex(),
			TokenToSell:   decoded.TokenToSell.Hex(),
			AmountIn:      decoded.AmountIn,
			TargetL1Asset: decoded.TargetL1Asset.Hex(),
			Deadline:      decoded.Deadline,
			SourceNonce:   decoded.Nonce,
			EventHash:     log.TxHash.Hex(),
		}

	default:
		return event, errors.Errorf("unknown event name %q", eventName)
	}

	return event, nil
}
