// Package contracts holds the ABI fragments the relayer packs and unpacks
// against: the bridge contract deployed on both L1 and L2, and the ERC-20
// surface used to read token decimals for amount normalization. These are
// the only two contracts this repo has any on-chain surface with; the
// contract logic itself is someone else's problem.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// BridgeABI is a superset of the L1 and L2 bridge contracts' interfaces.
// Both sides share usedNonces, DOMAIN_SEPARATOR and the EIP-712 signature
// convention; they differ only in which events they emit and which write
// method they expose (L1 emits AssetsBuy and exposes withdraw plus
// getUserLpShare; L2 emits ASSETS_SOLD and exposes executeBuy). Packing a
// method absent from the deployed side is simply never attempted.
const BridgeABI = `[
	{"type":"event","name":"AssetsBuy","inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"assetIn","type":"address","indexed":false},
		{"name":"amountIn","type":"uint256","indexed":false},
		{"name":"l2TargetToken","type":"address","indexed":false},
		{"name":"deadline","type":"uint256","indexed":false},
		{"name":"nonce","type":"uint256","indexed":false}
	],"anonymous":false},
	{"type":"event","name":"ASSETS_SOLD","inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"tokenToSell","type":"address","indexed":false},
		{"name":"amountIn","type":"uint256","indexed":false},
		{"name":"targetL1Asset","type":"address","indexed":false},
		{"name":"deadline","type":"uint256","indexed":false},
		{"name":"nonce","type":"uint256","indexed":false}
	],"anonymous":false},
	{"type":"function","name":"DOMAIN_SEPARATOR","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"usedNonces","stateMutability":"view",
		"inputs":[{"name":"user","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getUserLpShare","stateMutability":"view",
		"inputs":[{"name":"user","type":"address"},{"name":"asset","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"executeBuy","stateMutability":"nonpayable",
		"inputs":[
			{"name":"user","type":"address"},
			{"name":"l2Token","type":"address"},
			{"name":"amount","type":"uint256"},
			{"name":"minOut","type":"uint256"},
			{"name":"nonce","type":"uint256"},
			{"name":"deadline","type":"uint256"},
			{"name":"sig","type":"bytes"}
		],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable",
		"inputs":[
			{"name":"user","type":"address"},
			{"name":"asset","type":"address"},
			{"name":"lpShare","type":"uint256"},
			{"name":"nonce","type":"uint256"},
			{"name":"deadline","type":"uint256"},
			{"name":"sig","type":"bytes"}
		],"outputs":[]}
]`

// ERC20ABI covers only the two read methods the relayer needs: decimals
// for amount normalization and balanceOf for the supplemented balance
// read surface.
const ERC20ABI = `[
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]}
]`

// Parsed ABIs, built once at package init. A malformed literal above is a
// programmer error, not a runtime condition, so a panic here is correct.
var (
	Bridge abi.ABI
	ERC20  abi.ABI
)

func init() {
	var err error
	Bridge, err = abi.JSON(strings.NewReader(BridgeABI))
	if err != nil {
		panic(errors.Wrap(err, "failed to parse bridge ABI"))
	}

	ERC20, err = abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		panic(errors.Wrap(err, "failed to parse ERC20 ABI"))
	}
}
