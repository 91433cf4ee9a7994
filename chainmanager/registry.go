// Package chainmanager wires the two configured legs of the bridge into
// a types.ChainRegistry. Both legs are EVM chains, so there is no
// factory indirection: construction is keyed directly by types.ChainTag.
package chainmanager

import (
	"sync"

	"github.com/assetbridge-io/relayer/chains/evm"
	"github.com/assetbridge-io/relayer/common/types"
	"github.com/sirupsen/logrus"
)

type registry struct {
	chains      map[types.ChainTag]types.ChainClient
	chainsMutex sync.RWMutex
}

// NewRegistry dials and constructs both configured legs of the bridge.
// A dial failure on either leg aborts construction: a relayer missing
// one of its two chains has nothing to relay.
func NewRegistry(l1Config, l2Config *types.ChainConfig, logger *logrus.Logger) (types.ChainRegistry, error) {
	l1, err := evm.New(l1Config, logger)
	if err != nil {
		return nil, err
	}

	l2, err := evm.New(l2Config, logger)
	if err != nil {
		return nil, err
	}

	return &registry{
		chains: map[types.ChainTag]types.ChainClient{
			types.L1: l1,
			types.L2: l2,
		},
	}, nil
}

func (r *registry) Get(tag types.ChainTag) types.ChainClient {
	r.chainsMutex.RLock()
	defer r.chainsMutex.RUnlock()
	return r.chains[tag]
}
