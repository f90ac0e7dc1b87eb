package match

import (
	"math/big"

	"fenrir/domain/numeric"
	"fenrir/domain/order"
)

// FillOrder is the generic single-order fill primitive. It knows nothing
// about matching: given a desired taker asset fill, it caps the amount at
// what remains, derives the maker amount and both fees by the order's ratio
// with floor division, and rejects fills whose truncation loses more than
// the negligible threshold.
func FillOrder(o *order.Order, status order.Status, alreadyFilled, desiredTakerFill *big.Int) (Status, *FillResults, error) {
	if !status.Fillable() {
		return StatusOrderUnfillable, nil, nil
	}

	remaining, err := numeric.Sub(o.TakerAssetAmount, alreadyFilled)
	if err != nil {
		// Cumulative fill above the order total means corrupted state.
		return 0, nil, invariant("cumulative fill exceeds taker asset amount")
	}

	takerFill := desiredTakerFill
	if takerFill.Cmp(remaining) > 0 {
		takerFill = remaining
	}
	if takerFill.Sign() <= 0 {
		return StatusOrderUnfillable, nil, nil
	}

	ok, err := numeric.IsNegligibleRoundingError(takerFill, o.TakerAssetAmount, o.MakerAssetAmount)
	if err != nil {
		return 0, nil, err
	}
	if !ok {
		return StatusRoundingErrorTooLarge, nil, nil
	}

	makerFill, err := numeric.PartialAmount(takerFill, o.TakerAssetAmount, o.MakerAssetAmount)
	if err != nil {
		return 0, nil, err
	}
	makerFee, err := numeric.PartialAmount(takerFill, o.TakerAssetAmount, feeOrZero(o.MakerFee))
	if err != nil {
		return 0, nil, err
	}
	takerFee, err := numeric.PartialAmount(takerFill, o.TakerAssetAmount, feeOrZero(o.TakerFee))
	if err != nil {
		return 0, nil, err
	}

	return StatusSuccess, &FillResults{
		MakerAssetFilledAmount: makerFill,
		TakerAssetFilledAmount: new(big.Int).Set(takerFill),
		MakerFeePaid:           makerFee,
		TakerFeePaid:           takerFee,
	}, nil
}

func feeOrZero(fee *big.Int) *big.Int {
	if fee == nil {
		return new(big.Int)
	}
	return fee
}
