package service

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureVerifier checks that a signature over an order hash was
// produced by the expected signer.
type SignatureVerifier interface {
	Verify(hash common.Hash, signer common.Address, sig []byte) bool
}

// EcdsaVerifier validates 65-byte recoverable secp256k1 signatures
// over the raw order hash.
type EcdsaVerifier struct{}

func (EcdsaVerifier) Verify(hash common.Hash, signer common.Address, sig []byte) bool {
	if len(sig) != 65 {
		return false
	}
	// Accept both 0/1 and 27/28 recovery ids.
	norm := make([]byte, 65)
	copy(norm, sig)
	if norm[64] >= 27 {
		norm[64] -= 27
	}
	pub, err := crypto.SigToPub(hash.Bytes(), norm)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == signer
}
