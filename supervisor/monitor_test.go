package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	blockErr     atomic.Bool
	reconnectErr atomic.Bool

	blockCalls     atomic.Int64
	reconnectCalls atomic.Int64

	errChan chan error
}

func newFakeClient() *fakeClient {
	return &fakeClient{errChan: make(chan error, 1)}
}

func (f *fakeClient) BlockNumber(ctx context.Context) (uint64, error) {
	f.blockCalls.Add(1)
	if f.blockErr.Load() {
		return 0, errors.New("transport dead")
	}
	return 1, nil
}

func (f *fakeClient) Reconnect(ctx context.Context) error {
	f.reconnectCalls.Add(1)
	if f.reconnectErr.Load() {
		return errors.New("still dead")
	}
	return nil
}

func (f *fakeClient) Errors() <-chan error { return f.errChan }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestHealthyTickNeverReconnects(t *testing.T) {
	client := newFakeClient()
	s := New(client, quietLogger(), "L1", 5*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Greater(t, client.blockCalls.Load(), int64(1), "health tick must probe repeatedly")
	assert.Zero(t, client.reconnectCalls.Load())
	assert.False(t, s.Halted())
}

func TestFailedTickTriggersReconnectThenRecovers(t *testing.T) {
	client := newFakeClient()
	client.blockErr.Store(true)

	s := New(client, quietLogger(), "L1", 5*time.Millisecond)
	s.backoffBase = time.Millisecond

	s.Start(context.Background())

	require.Eventually(t, func() bool {
		return client.reconnectCalls.Load() >= 1
	}, time.Second, time.Millisecond)

	// Recovery: the probe succeeds again, no further reconnects pile up.
	client.blockErr.Store(false)
	time.Sleep(30 * time.Millisecond)
	calls := client.reconnectCalls.Load()
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	assert.Equal(t, calls, client.reconnectCalls.Load(), "reconnects must stop once the probe recovers")
	assert.False(t, s.Halted())
}

func TestReconnectCapHaltsThisChainOnly(t *testing.T) {
	client := newFakeClient()
	client.blockErr.Store(true)
	client.reconnectErr.Store(true)

	s := New(client, quietLogger(), "L1", 5*time.Millisecond)
	s.backoffBase = time.Millisecond

	healthy := newFakeClient()
	other := New(healthy, quietLogger(), "L2", 5*time.Millisecond)

	ctx := context.Background()
	s.Start(ctx)
	other.Start(ctx)

	require.Eventually(t, s.Halted, 5*time.Second, time.Millisecond, "supervisor must halt after exhausting its retry budget")
	assert.Equal(t, int64(maxAttempts), client.reconnectCalls.Load(), "exactly 10 reconnect attempts, the 11th is never scheduled")

	// The halted supervisor schedules nothing further.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(maxAttempts), client.reconnectCalls.Load())

	assert.False(t, other.Halted(), "the other chain's supervisor keeps running")
	other.Stop()
}

func TestTransportErrorTriggersReconnect(t *testing.T) {
	client := newFakeClient()
	s := New(client, quietLogger(), "L1", time.Hour) // tick never fires
	s.backoffBase = time.Millisecond

	s.Start(context.Background())
	client.errChan <- errors.New("subscription dropped")

	require.Eventually(t, func() bool {
		return client.reconnectCalls.Load() >= 1
	}, time.Second, time.Millisecond)
	s.Stop()
}

type networkChangedErr struct{}

func (networkChangedErr) Error() string        { return "network changed" }
func (networkChangedErr) NetworkChanged() bool { return true }

func TestNetworkChangedResetsWithoutReconnect(t *testing.T) {
	client := newFakeClient()
	s := New(client, quietLogger(), "L1", time.Hour)

	s.Start(context.Background())
	client.errChan <- networkChangedErr{}

	time.Sleep(30 * time.Millisecond)
	s.Stop()

	assert.Zero(t, client.reconnectCalls.Load(), "network-changed is logged and absorbed, not reconnected")
	assert.False(t, s.Halted())
}
