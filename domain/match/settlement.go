package match

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"fenrir/domain/numeric"
	"fenrir/domain/order"
)

// Settler turns computed fill amounts into asset movements and persisted
// fill state. Collaborators are constructor-supplied: the asset proxy and
// the fill store are owned by the encompassing session, not by the core.
type Settler struct {
	ledger       Transferor
	store        FillStore
	feeAssetData []byte
}

func NewSettler(ledger Transferor, store FillStore, feeAssetData []byte) *Settler {
	return &Settler{ledger: ledger, store: store, feeAssetData: feeAssetData}
}

// Settlement is the audit record of one committed match: the amounts moved
// and each order's new counterparty.
type Settlement struct {
	LeftOrderHash  common.Hash
	RightOrderHash common.Hash
	LeftMaker      common.Address
	RightMaker     common.Address
	Taker          common.Address

	Results MatchedFillResults

	// New cumulative filled taker asset amounts after this settlement.
	LeftFilledTotal  *big.Int
	RightFilledTotal *big.Int
}

// Settle moves assets and fees for one computed match and persists both
// orders' new cumulative fills. Transfers are staged on a single batch and
// validated before anything is written, so a failing leg aborts the whole
// settlement with no partial effect.
//
// Asset flow: the left maker pays out their full maker fill; the right
// maker gets exactly the right order's taker fill and the taker gets the
// spread. The right maker pays the left maker's taker fill in return.
func (s *Settler) Settle(
	left, right *order.Order,
	leftHash, rightHash common.Hash,
	leftFilled, rightFilled *big.Int,
	res *MatchedFillResults,
	taker common.Address,
) (*Settlement, error) {
	batch := s.ledger.Batch()

	if err := s.stageTransfers(batch, left, right, res, taker); err != nil {
		batch.Discard()
		return nil, err
	}

	leftTotal, err := numeric.Add(leftFilled, res.Left.TakerAssetFilledAmount)
	if err != nil {
		batch.Discard()
		return nil, err
	}
	rightTotal, err := numeric.Add(rightFilled, res.Right.TakerAssetFilledAmount)
	if err != nil {
		batch.Discard()
		return nil, err
	}
	if leftTotal.Cmp(left.TakerAssetAmount) > 0 || rightTotal.Cmp(right.TakerAssetAmount) > 0 {
		batch.Discard()
		return nil, invariant("cumulative fill would exceed order amount")
	}

	// Every transfer has been validated; record the fills first, then
	// commit the already-staged batch.
	err = s.store.Apply([]FillUpdate{
		{OrderHash: leftHash, FilledTakerAssetAmount: leftTotal},
		{OrderHash: rightHash, FilledTakerAssetAmount: rightTotal},
	})
	if err != nil {
		batch.Discard()
		return nil, fmt.Errorf("persist fill state: %w", err)
	}
	if err := batch.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfers: %w", err)
	}

	return &Settlement{
		LeftOrderHash:    leftHash,
		RightOrderHash:   rightHash,
		LeftMaker:        left.Maker,
		RightMaker:       right.Maker,
		Taker:            taker,
		Results:          *res,
		LeftFilledTotal:  leftTotal,
		RightFilledTotal: rightTotal,
	}, nil
}

func (s *Settler) stageTransfers(batch TransferBatch, left, right *order.Order, res *MatchedFillResults, taker common.Address) error {
	// Makers swap principal.
	if err := batch.Transfer(right.MakerAssetData, right.Maker, left.Maker, res.Left.TakerAssetFilledAmount); err != nil {
		return err
	}
	if err := batch.Transfer(left.MakerAssetData, left.Maker, right.Maker, res.Right.TakerAssetFilledAmount); err != nil {
		return err
	}

	// Rounding and price spread flow to the taker, never to the right maker.
	if res.LeftMakerAssetSpreadAmount.Sign() > 0 {
		if err := batch.Transfer(left.MakerAssetData, left.Maker, taker, res.LeftMakerAssetSpreadAmount); err != nil {
			return err
		}
	}

	// Maker fees.
	if res.Left.MakerFeePaid.Sign() > 0 {
		if err := batch.Transfer(s.feeAssetData, left.Maker, left.FeeRecipient, res.Left.MakerFeePaid); err != nil {
			return err
		}
	}
	if res.Right.MakerFeePaid.Sign() > 0 {
		if err := batch.Transfer(s.feeAssetData, right.Maker, right.FeeRecipient, res.Right.MakerFeePaid); err != nil {
			return err
		}
	}

	// Taker fees, combined into one transfer when both orders name the
	// same recipient.
	if left.FeeRecipient == right.FeeRecipient {
		total, err := numeric.Add(res.Left.TakerFeePaid, res.Right.TakerFeePaid)
		if err != nil {
			return err
		}
		if total.Sign() > 0 {
			if err := batch.Transfer(s.feeAssetData, taker, left.FeeRecipient, total); err != nil {
				return err
			}
		}
		return nil
	}
	if res.Left.TakerFeePaid.Sign() > 0 {
		if err := batch.Transfer(s.feeAssetData, taker, left.FeeRecipient, res.Left.TakerFeePaid); err != nil {
			return err
		}
	}
	if res.Right.TakerFeePaid.Sign() > 0 {
		if err := batch.Transfer(s.feeAssetData, taker, right.FeeRecipient, res.Right.TakerFeePaid); err != nil {
			return err
		}
	}
	return nil
}
