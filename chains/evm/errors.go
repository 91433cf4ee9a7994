package evm

import (
	relayererrors "github.com/assetbridge-io/relayer/common/errors"
	"github.com/pkg/errors"
)

var errNotInitialized = errors.New("client not initialized")

// notConnected classifies a nil-client guard as a ConnectionError so
// the supervisor can tell a dead transport apart from an RPC-level
// failure.
func (c *Chain) notConnected() error {
	return relayererrors.NewConnectionError(c.config.Name, errNotInitialized)
}
