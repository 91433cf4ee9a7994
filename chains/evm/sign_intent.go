package evm

import (
	"math/big"

	"github.com/assetbridge-io/relayer/chains/evm/signer"
)

// SignBuyIntent produces the ASSETS_BUY EIP-712 signature the L2 bridge
// contract verifies on executeBuy. domainSeparator must have been read
// from the destination contract; signing itself never touches the chain.
func (c *Chain) SignBuyIntent(domainSeparator [32]byte, user, l2Token string, amount, nonce, deadline *big.Int) ([]byte, error) {
	s, err := c.getSigner()
	if err != nil {
		return nil, err
	}
	return signer.SignBuyIntent(s, domainSeparator, user, l2Token, amount, nonce, deadline)
}

// SignSellIntent produces the ASSETS_SOLD EIP-712 signature the L1 bridge
// contract verifies on withdraw.
func (c *Chain) SignSellIntent(domainSeparator [32]byte, user, assetToWithdraw string, nonce, deadline *big.Int) ([]byte, error) {
	s, err := c.getSigner()
	if err != nil {
		return nil, err
	}
	return signer.SignSellIntent(s, domainSeparator, user, assetToWithdraw, nonce, deadline)
}
