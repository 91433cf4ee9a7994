// Package handler implements the push-path half of ChainClient.Subscribe:
// a WebSocket log subscription to a single bridge event, falling back to
// HTTP polling when the configured RPC endpoint cannot be dialed over
// WebSocket.
package handler

import (
	"context"
	"sync"
	"time"

	commontypes "github.com/assetbridge-io/relayer/common/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

const (
	contextTimeout  = 30 * time.Second
	pollingInterval = 5 * time.Second
	maxBlockRange   = uint64(1000)
)

// EventHandler owns the live subscription (or poll ticker) for one
// chain's single bridge event and decodes matching logs into ChainEvent
// values on eventChan.
type EventHandler struct {
	ctx    context.Context
	cancel context.CancelFunc

	config    *commontypes.ChainConfig
	eventName commontypes.EventName
	logger    *logrus.Logger

	httpClient *ethclient.Client
	wsClient   *ethclient.Client

	eventChan chan<- commontypes.ChainEvent
	errChan   chan error

	subscription *commontypes.Subscription

	lastProcessedBlock uint64
	lastBlockMutex     sync.RWMutex
	pollingTicker      *time.Ticker
}

// New creates an EventHandler that will decode eventName logs from
// httpClient's bridge contract and write them to eventChan. httpClient
// is used directly for HTTP polling; a WebSocket client is dialed lazily
// by Start when the WebSocket path is preferred.
func New(
	ctx context.Context,
	config *commontypes.ChainConfig,
	eventName commontypes.EventName,
	logger *logrus.Logger,
	httpClient *ethclient.Client,
	eventChan chan<- commontypes.ChainEvent,
) *EventHandler {
	handlerCtx, cancel := context.WithCancel(ctx)

	return &EventHandler{
		ctx:          handlerCtx,
		cancel:       cancel,
		config:       config,
		eventName:    eventName,
		logger:       logger,
		httpClient:   httpClient,
		eventChan:    eventChan,
		errChan:      make(chan error, 1),
		subscription: &commontypes.Subscription{},
	}
}

// Errors surfaces transport failures so the Supervisor can trigger a
// reconnect.
func (h *EventHandler) Errors() <-chan error {
	return h.errChan
}

// Done is closed when the handler is stopped; consumers of Errors use it
// to end their drain loop.
func (h *EventHandler) Done() <-chan struct{} {
	return h.ctx.Done()
}

func (h *EventHandler) notifyError(err error) {
	select {
	case h.errChan <- err:
	default:
	}
}

// Start establishes the subscription, preferring WebSocket at the
// derived URL and falling back to HTTP polling if the dial fails.
func (h *EventHandler) Start() error {
	wsURL := commontypes.DeriveWebSocketURL(h.config.RpcUrl)

	if err := h.StartWS(wsURL); err != nil {
		h.logger.WithFields(logrus.Fields{
			"chain": h.config.Name,
			"event": h.eventName,
		}).WithError(err).Warn("websocket subscription unavailable, falling back to HTTP polling")
		return h.StartHTTPPolling()
	}

	return nil
}

// Stop tears down whichever transport is active. Idempotent.
func (h *EventHandler) Stop() {
	h.cancel()
	if h.subscription != nil {
		h.subscription.Close()
	}
	if h.pollingTicker != nil {
		h.pollingTicker.Stop()
	}
	if h.wsClient != nil {
		h.wsClient.Close()
		h.wsClient = nil
	}
}
