package evm

import (
	"context"
	"math/big"

	"github.com/assetbridge-io/relayer/common/contracts"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

func (c *Chain) callRead(ctx context.Context, to string, abiData []byte) ([]byte, error) {
	client := c.getClient()
	if client == nil {
		return nil, c.notConnected()
	}

	toAddr := common.HexToAddress(to)
	return client.CallContract(ctx, ethereum.CallMsg{To: &toAddr, Data: abiData}, nil)
}

// DomainSeparator reads DOMAIN_SEPARATOR() from the configured bridge
// contract.
func (c *Chain) DomainSeparator(ctx context.Context) ([32]byte, error) {
	var out [32]byte

	data, err := contracts.Bridge.Pack("DOMAIN_SEPARATOR")
	if err != nil {
		return out, errors.Wrap(err, "failed to pack DOMAIN_SEPARATOR call")
	}

	result, err := c.callRead(ctx, c.config.BridgeContract, data)
	if err != nil {
		return out, errors.Wrap(err, "failed to call DOMAIN_SEPARATOR")
	}

	unpacked, err := contracts.Bridge.Unpack("DOMAIN_SEPARATOR", result)
	if err != nil {
		return out, errors.Wrap(err, "failed to unpack DOMAIN_SEPARATOR result")
	}
	if len(unpacked) != 1 {
		return out, errors.New("unexpected DOMAIN_SEPARATOR return shape")
	}

	asserted := unpacked[0].([32]byte)
	copy(out[:], asserted[:])
	return out, nil
}

// UsedNonces reads usedNonces(user) from the bridge contract.
func (c *Chain) UsedNonces(ctx context.Context, user string) (*big.Int, error) {
	data, err := contracts.Bridge.Pack("usedNonces", common.HexToAddress(user))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack usedNonces call")
	}

	result, err := c.callRead(ctx, c.config.BridgeContract, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call usedNonces")
	}

	unpacked, err := contracts.Bridge.Unpack("usedNonces", result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack usedNonces result")
	}
	return unpacked[0].(*big.Int), nil
}

// GetUserLpShare reads getUserLpShare(user, asset) from the L1 bridge
// contract, used only on the Sell/withdraw path.
func (c *Chain) GetUserLpShare(ctx context.Context, user, asset string) (*big.Int, error) {
	data, err := contracts.Bridge.Pack("getUserLpShare", common.HexToAddress(user), common.HexToAddress(asset))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack getUserLpShare call")
	}

	result, err := c.callRead(ctx, c.config.BridgeContract, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call getUserLpShare")
	}

	unpacked, err := contracts.Bridge.Unpack("getUserLpShare", result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack getUserLpShare result")
	}
	return unpacked[0].(*big.Int), nil
}

// Decimals reads ERC-20 decimals() on token.
func (c *Chain) Decimals(ctx context.Context, token string) (uint8, error) {
	data, err := contracts.ERC20.Pack("decimals")
	if err != nil {
		return 0, errors.Wrap(err, "failed to pack decimals call")
	}

	result, err := c.callRead(ctx, token, data)
	if err != nil {
		return 0, errors.Wrap(err, "failed to call decimals")
	}

	unpacked, err := contracts.ERC20.Unpack("decimals", result)
	if err != nil {
		return 0, errors.Wrap(err, "failed to unpack decimals result")
	}
	return unpacked[0].(uint8), nil
}
