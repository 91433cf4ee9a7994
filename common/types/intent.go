package types

import "math/big"

// BuyIntent is the decoded form of an L1 AssetsBuy event, ready to be
// relayed as an L2 executeBuy call.
type BuyIntent struct {
	User          string
	AssetIn       string
	AmountIn      *big.Int
	L2TargetToken string
	Deadline      *big.Int
	SourceNonce   *big.Int
	EventHash     string
}

// SellIntent is the decoded form of an L2 ASSETS_SOLD event, ready to be
// relayed as an L1 withdraw call.
type SellIntent struct {
	User          string
	TokenToSell   string
	AmountIn      *big.Int
	TargetL1Asset string
	Deadline      *big.Int
	SourceNonce   *big.Int
	EventHash     string
}
