package journal

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/protobuf/encoding/protowire"

	"fenrir/domain/match"
)

// Settlement records are protobuf wire format, hand-framed with protowire
// so the repo carries no generated code. Field numbers are frozen; only
// append new ones.
const (
	fieldLeftOrderHash    = 1
	fieldRightOrderHash   = 2
	fieldLeftMaker        = 3
	fieldRightMaker       = 4
	fieldTaker            = 5
	fieldLeftTakerFilled  = 6
	fieldRightTakerFilled = 7
	fieldLeftMakerFilled  = 8
	fieldRightMakerFilled = 9
	fieldSpread           = 10
	fieldLeftFilledTotal  = 11
	fieldRightFilledTotal = 12
)

var ErrCorruptRecord = errors.New("journal: corrupt settlement record")

// EncodeSettlement serializes one committed settlement.
func EncodeSettlement(s *match.Settlement) []byte {
	var buf []byte
	appendField := func(num protowire.Number, b []byte) {
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		buf = protowire.AppendBytes(buf, b)
	}

	appendField(fieldLeftOrderHash, s.LeftOrderHash.Bytes())
	appendField(fieldRightOrderHash, s.RightOrderHash.Bytes())
	appendField(fieldLeftMaker, s.LeftMaker.Bytes())
	appendField(fieldRightMaker, s.RightMaker.Bytes())
	appendField(fieldTaker, s.Taker.Bytes())
	appendField(fieldLeftTakerFilled, s.Results.Left.TakerAssetFilledAmount.Bytes())
	appendField(fieldRightTakerFilled, s.Results.Right.TakerAssetFilledAmount.Bytes())
	appendField(fieldLeftMakerFilled, s.Results.Left.MakerAssetFilledAmount.Bytes())
	appendField(fieldRightMakerFilled, s.Results.Right.MakerAssetFilledAmount.Bytes())
	appendField(fieldSpread, s.Results.LeftMakerAssetSpreadAmount.Bytes())
	appendField(fieldLeftFilledTotal, s.LeftFilledTotal.Bytes())
	appendField(fieldRightFilledTotal, s.RightFilledTotal.Bytes())
	return buf
}

// DecodeSettlement is the inverse of EncodeSettlement. Unknown fields are
// skipped so old readers tolerate new writers.
func DecodeSettlement(data []byte) (*match.Settlement, error) {
	s := &match.Settlement{
		Results: match.MatchedFillResults{
			Left: match.FillResults{
				MakerAssetFilledAmount: new(big.Int),
				TakerAssetFilledAmount: new(big.Int),
				MakerFeePaid:           new(big.Int),
				TakerFeePaid:           new(big.Int),
			},
			Right: match.FillResults{
				MakerAssetFilledAmount: new(big.Int),
				TakerAssetFilledAmount: new(big.Int),
				MakerFeePaid:           new(big.Int),
				TakerFeePaid:           new(big.Int),
			},
			LeftMakerAssetSpreadAmount: new(big.Int),
		},
		LeftFilledTotal:  new(big.Int),
		RightFilledTotal: new(big.Int),
	}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrCorruptRecord
		}
		data = data[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, ErrCorruptRecord
			}
			data = data[n:]
			continue
		}

		val, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, ErrCorruptRecord
		}
		data = data[n:]

		switch num {
		case fieldLeftOrderHash:
			s.LeftOrderHash = common.BytesToHash(val)
		case fieldRightOrderHash:
			s.RightOrderHash = common.BytesToHash(val)
		case fieldLeftMaker:
			s.LeftMaker = common.BytesToAddress(val)
		case fieldRightMaker:
			s.RightMaker = common.BytesToAddress(val)
		case fieldTaker:
			s.Taker = common.BytesToAddress(val)
		case fieldLeftTakerFilled:
			s.Results.Left.TakerAssetFilledAmount.SetBytes(val)
		case fieldRightTakerFilled:
			s.Results.Right.TakerAssetFilledAmount.SetBytes(val)
		case fieldLeftMakerFilled:
			s.Results.Left.MakerAssetFilledAmount.SetBytes(val)
		case fieldRightMakerFilled:
			s.Results.Right.MakerAssetFilledAmount.SetBytes(val)
		case fieldSpread:
			s.Results.LeftMakerAssetSpreadAmount.SetBytes(val)
		case fieldLeftFilledTotal:
			s.LeftFilledTotal.SetBytes(val)
		case fieldRightFilledTotal:
			s.RightFilledTotal.SetBytes(val)
		}
	}
	return s, nil
}
