// Package supervisor owns each chain connection's lifecycle:
// health-check ticking, exponential-backoff reconnection, capped
// retries, and graceful teardown. Reconnects are triggered both by a
// failed health probe and by transport errors surfaced on the client's
// Errors feed; a network-changed event on that feed is logged and does
// not trigger a reconnect.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	healthTickInterval = 30 * time.Second
	backoffBase        = 2 * time.Second
	maxAttempts        = 10
)

// BlockchainClient is the subset of types.ChainClient a Supervisor
// drives: a health probe, a reconnect action, and a transport-event feed.
type BlockchainClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	Reconnect(ctx context.Context) error
	Errors() <-chan error
}

// Supervisor monitors one chain's connection and reconnects it with
// exponential backoff. Halting on the attempt cap is scoped to this
// chain's Supervisor: the other chain's Supervisor is unaffected.
type Supervisor struct {
	client    BlockchainClient
	logger    *logrus.Logger
	chainName string

	tickInterval time.Duration
	backoffBase  time.Duration

	stopChan chan struct{}
	doneChan chan struct{}

	stateMutex sync.Mutex
	running    bool
	halted     bool
}

// New constructs a Supervisor for one chain. tickInterval of 0 selects
// the default of 30 seconds.
func New(client BlockchainClient, logger *logrus.Logger, chainName string, tickInterval time.Duration) *Supervisor {
	if tickInterval <= 0 {
		tickInterval = healthTickInterval
	}

	return &Supervisor{
		client:       client,
		logger:       logger,
		chainName:    chainName,
		tickInterval: tickInterval,
		backoffBase:  backoffBase,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins health ticking and transport-event handling in the
// background. Calling Start twice is a no-op.
func (s *Supervisor) Start(ctx context.Context) {
	s.stateMutex.Lock()
	if s.running {
		s.stateMutex.Unlock()
		return
	}
	s.running = true
	s.stateMutex.Unlock()

	go s.run(ctx)
}

// Stop tears down the health loop. Idempotent.
func (s *Supervisor) Stop() {
	s.stateMutex.Lock()
	if !s.running {
		s.stateMutex.Unlock()
		return
	}
	s.running = false
	s.stateMutex.Unlock()

	close(s.stopChan)
	<-s.doneChan
}

// Halted reports whether this chain's retry budget was exhausted and its
// supervisor gave up.
func (s *Supervisor) Halted() bool {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	return s.halted
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.WithField("chain", s.chainName).Info("supervisor stopped: context cancelled")
			return

		case <-s.stopChan:
			s.logger.WithField("chain", s.chainName).Info("supervisor stopped")
			return

		case err, ok := <-s.client.Errors():
			if !ok {
				continue
			}
			if isNetworkChanged(err) {
				s.logger.WithFields(logrus.Fields{
					"chain": s.chainName,
					"error": err,
				}).Warn("network changed, resetting retry state")
				continue
			}

			s.logger.WithFields(logrus.Fields{
				"chain": s.chainName,
				"error": err,
			}).Warn("transport error, reconnecting")

			if !s.reconnectWithBackoff(ctx) {
				return
			}

		case <-ticker.C:
			if _, err := s.client.BlockNumber(ctx); err != nil {
				s.logger.WithFields(logrus.Fields{
					"chain": s.chainName,
					"error": err,
				}).Warn("health check failed, reconnecting")

				if !s.reconnectWithBackoff(ctx) {
					return
				}
			}
		}
	}
}

// reconnectWithBackoff retries Reconnect with base-2s exponential backoff
// (2, 4, 8, ... seconds), exponent equal to the current attempt count,
// up to maxAttempts. It returns false if the cap was reached, at which
// point this chain's supervisor halts permanently.
func (s *Supervisor) reconnectWithBackoff(ctx context.Context) bool {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.client.Reconnect(ctx); err == nil {
			s.logger.WithFields(logrus.Fields{
				"chain":   s.chainName,
				"attempt": attempt,
			}).Info("reconnected")
			return true
		} else {
			s.logger.WithFields(logrus.Fields{
				"chain":   s.chainName,
				"attempt": attempt,
				"error":   err,
			}).Error("reconnect attempt failed")
		}

		if attempt == maxAttempts {
			break
		}

		wait := s.backoffBase * time.Duration(1<<uint(attempt-1))
		select {
		case <-ctx.Done():
			return false
		case <-s.stopChan:
			return false
		case <-time.After(wait):
		}
	}

	s.stateMutex.Lock()
	s.halted = true
	s.stateMutex.Unlock()

	s.logger.WithField("chain", s.chainName).
		WithField("attempts", maxAttempts).
		Error("reconnect attempts exhausted, halting supervisor for this chain")
	return false
}

func isNetworkChanged(err error) bool {
	type networkChanged interface {
		NetworkChanged() bool
	}
	nc, ok := err.(networkChanged)
	return ok && nc.NetworkChanged()
}
