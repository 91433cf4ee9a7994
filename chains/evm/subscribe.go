package evm

import (
	"context"

	"github.com/assetbridge-io/relayer/chains/evm/handler"
	"github.com/assetbridge-io/relayer/common/types"
)

// eventNameFor returns the single bridge event this chain's leg emits:
// AssetsBuy on L1, ASSETS_SOLD on L2.
func eventNameFor(tag types.ChainTag) types.EventName {
	if tag == types.L1 {
		return types.EventAssetsBuy
	}
	return types.EventAssetsSold
}

// Subscribe starts (or restarts, after Reconnect) the live event
// subscription for this chain's bridge event.
func (c *Chain) Subscribe(ctx context.Context, eventChan chan<- types.ChainEvent) error {
	c.eventHandlerMutex.Lock()
	defer c.eventHandlerMutex.Unlock()

	if c.eventHandler != nil {
		c.eventHandler.Stop()
	}

	client := c.getClient()
	if client == nil {
		return c.notConnected()
	}

	eventName := eventNameFor(c.config.Tag)
	h := handler.New(ctx, c.config, eventName, c.logger, client, eventChan)
	if err := h.Start(); err != nil {
		return err
	}

	c.eventHandler = h
	c.activeEventName = eventName
	c.activeEventChan = eventChan

	go c.forwardHandlerErrors(h)

	return nil
}

// forwardHandlerErrors pumps h's transport errors into the chain-level
// errChan until h is stopped, merging them with the network-changed
// notifications BlockNumber produces so Errors() has a single feed.
func (c *Chain) forwardHandlerErrors(h interface {
	Errors() <-chan error
	Done() <-chan struct{}
}) {
	for {
		select {
		case <-h.Done():
			return
		case err := <-h.Errors():
			if err != nil {
				c.notifyError(err)
			}
		}
	}
}

// Unsubscribe tears down the active subscription, if any. Idempotent.
func (c *Chain) Unsubscribe() {
	c.eventHandlerMutex.Lock()
	defer c.eventHandlerMutex.Unlock()

	if c.eventHandler != nil {
		c.eventHandler.Stop()
		c.eventHandler = nil
	}
}

// Errors surfaces the chain-level transport event feed: subscription
// errors forwarded from the active handler plus the network-changed
// notifications BlockNumber produces.
func (c *Chain) Errors() <-chan error {
	return c.errChan
}
