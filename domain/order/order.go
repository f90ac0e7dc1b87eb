package order

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Order is an immutable, off-chain-signed limit order. An order never
// mutates after signing; only the fill state recorded under its hash does.
type Order struct {
	Exchange     common.Address // domain identifier the order is bound to
	Maker        common.Address
	Taker        common.Address // zero address = anyone may take
	FeeRecipient common.Address

	MakerAssetData []byte // opaque asset descriptor, matched byte-exact
	TakerAssetData []byte

	MakerAssetAmount *big.Int // total offered
	TakerAssetAmount *big.Int // total requested
	MakerFee         *big.Int
	TakerFee         *big.Int

	Salt                  *big.Int
	ExpirationTimeSeconds uint64
}

// SignedOrder pairs an order with its maker's signature. Signature
// verification is a collaborator's concern; the core only carries the bytes.
type SignedOrder struct {
	Order
	Signature []byte
}

// Remaining returns the unfilled taker asset amount given the cumulative
// filled amount. The caller is responsible for filled <= TakerAssetAmount.
func (o *Order) Remaining(filled *big.Int) *big.Int {
	return new(big.Int).Sub(o.TakerAssetAmount, filled)
}

// Expired reports whether the order is past its expiration time.
// Orders with ExpirationTimeSeconds == 0 never expire.
func (o *Order) Expired(nowUnix int64) bool {
	return o.ExpirationTimeSeconds != 0 && uint64(nowUnix) >= o.ExpirationTimeSeconds
}

// Hash returns the canonical content hash of the order. It is the key under
// which cumulative fill state is persisted, so the encoding must stay
// stable: fixed-width fields in declaration order, variable-length asset
// data length-prefixed.
func (o *Order) Hash() common.Hash {
	return common.BytesToHash(crypto.Keccak256(o.encodeCanonical()))
}

func (o *Order) encodeCanonical() []byte {
	buf := make([]byte, 0, 256)

	buf = append(buf, o.Exchange.Bytes()...)
	buf = append(buf, o.Maker.Bytes()...)
	buf = append(buf, o.Taker.Bytes()...)
	buf = append(buf, o.FeeRecipient.Bytes()...)

	buf = appendBytesField(buf, o.MakerAssetData)
	buf = appendBytesField(buf, o.TakerAssetData)

	buf = appendAmount(buf, o.MakerAssetAmount)
	buf = appendAmount(buf, o.TakerAssetAmount)
	buf = appendAmount(buf, o.MakerFee)
	buf = appendAmount(buf, o.TakerFee)
	buf = appendAmount(buf, o.Salt)

	var exp [8]byte
	binary.BigEndian.PutUint64(exp[:], o.ExpirationTimeSeconds)
	return append(buf, exp[:]...)
}

func appendBytesField(buf, b []byte) []byte {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	buf = append(buf, l[:]...)
	return append(buf, b...)
}

// appendAmount writes a 32-byte big-endian word. Nil is encoded as zero so
// a half-initialized order still hashes deterministically.
func appendAmount(buf []byte, v *big.Int) []byte {
	var word [32]byte
	if v != nil {
		v.FillBytes(word[:])
	}
	return append(buf, word[:]...)
}
