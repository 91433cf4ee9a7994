package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	relayererrors "github.com/assetbridge-io/relayer/common/errors"
)

var (
	buyTypeHash  = crypto.Keccak256Hash([]byte("ASSETS_BUY(address user,address l2Token,address assetIn,uint256 amount,uint256 nonce,uint256 deadline)"))
	sellTypeHash = crypto.Keccak256Hash([]byte("ASSETS_SOLD(address user,address assetToWithdraw,uint256 nonce,uint256 deadline)"))

	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	bytes32Type, _ = abi.NewType("bytes32", "", nil)

	buyArgs = abi.Arguments{
		{Type: bytes32Type}, {Type: addressType}, {Type: addressType}, {Type: addressType}, {Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type},
	}
	sellArgs = abi.Arguments{
		{Type: bytes32Type}, {Type: addressType}, {Type: addressType}, {Type: uint256Type}, {Type: uint256Type},
	}
)

// digest builds the EIP-712 digest keccak256(0x19 || 0x01 || domainSeparator || structHash).
func digest(domainSeparator [32]byte, structHash common.Hash) [32]byte {
	buf := make([]byte, 0, 2+32+32)
	buf = append(buf, 0x19, 0x01)
	buf = append(buf, domainSeparator[:]...)
	buf = append(buf, structHash[:]...)

	var out [32]byte
	copy(out[:], crypto.Keccak256(buf))
	return out
}

// SignBuyIntent signs an ASSETS_BUY struct and verifies the resulting
// signature recovers to s's own address before returning it, so a wiring
// mistake (wrong private key, wrong domain separator) fails loudly at the
// signing site rather than surfacing later as a contract revert.
//
// assetIn is forced to the zero address, matching what the deployed
// contract verifies against. Do not substitute the real asset address
// here without a coordinated contract change.
func SignBuyIntent(s Signer, domainSeparator [32]byte, user, l2Token string, amount, nonce, deadline *big.Int) ([]byte, error) {
	encoded, err := buyArgs.Pack(
		buyTypeHash,
		common.HexToAddress(user),
		common.HexToAddress(l2Token),
		common.Address{},
		amount,
		nonce,
		deadline,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode ASSETS_BUY struct")
	}

	return signAndVerify(s, domainSeparator, crypto.Keccak256Hash(encoded))
}

// SignSellIntent signs an ASSETS_SOLD struct, with the same recover-and-
// verify guard as SignBuyIntent.
func SignSellIntent(s Signer, domainSeparator [32]byte, user, assetToWithdraw string, nonce, deadline *big.Int) ([]byte, error) {
	encoded, err := sellArgs.Pack(
		sellTypeHash,
		common.HexToAddress(user),
		common.HexToAddress(assetToWithdraw),
		nonce,
		deadline,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode ASSETS_SOLD struct")
	}

	return signAndVerify(s, domainSeparator, crypto.Keccak256Hash(encoded))
}

func signAndVerify(s Signer, domainSeparator [32]byte, structHash common.Hash) ([]byte, error) {
	d := digest(domainSeparator, structHash)

	sig, err := s.SignDigest(d)
	if err != nil {
		return nil, err
	}

	recovered, err := recoverAddress(d, sig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to recover address from signature")
	}
	if recovered != s.Address() {
		return nil, relayererrors.NewSignatureMismatch(s.Address().Hex(), recovered.Hex())
	}

	return sig, nil
}

func recoverAddress(digest [32]byte, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, errors.New("signature must be 65 bytes")
	}

	sigCopy := make([]byte, 65)
	copy(sigCopy, sig)
	if sigCopy[64] >= 27 {
		sigCopy[64] -= 27
	}

	pubKey, err := crypto.SigToPub(digest[:], sigCopy)
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}
