// Package state provides the durable fill-state backends. Each backend
// implements match.FillStore plus the cancellation write path used by the
// external cancellation collaborator.
package state

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"fenrir/domain/match"
)

// Store is a fill-state backend.
type Store interface {
	match.FillStore
	Cancel(hash common.Hash) error
}

var errShortRecord = errors.New("state: fill record too short")

// Fill records are append-only ledger entries:
// [filled taker amount : 32 bytes big-endian][cancelled : 1 byte]
const recordSize = 32 + 1

func encodeRecord(filled *big.Int, cancelled bool) []byte {
	buf := make([]byte, recordSize)
	filled.FillBytes(buf[:32])
	if cancelled {
		buf[32] = 1
	}
	return buf
}

func decodeRecord(b []byte) (match.FillState, error) {
	if len(b) != recordSize {
		return match.FillState{}, errShortRecord
	}
	return match.FillState{
		FilledTakerAssetAmount: new(big.Int).SetBytes(b[:32]),
		Cancelled:              b[32] == 1,
	}, nil
}
