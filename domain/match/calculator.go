package match

import (
	"math/big"

	"fenrir/domain/numeric"
	"fenrir/domain/order"
)

// ComputeMatchedFillResults determines which of the two complementary
// orders is the binding constraint and computes exact fill amounts for
// both. Inputs are assumed to have passed ValidateMatch; both orders'
// statuses come from the resolver.
//
// The constraint test is division-free: the left order can be fully filled
// iff leftRemaining <= rightRemaining * right.makerAmount/right.takerAmount,
// cross-multiplied below.
func ComputeMatchedFillResults(
	left, right *order.Order,
	leftStatus, rightStatus order.Status,
	leftFilled, rightFilled *big.Int,
) (Status, *MatchedFillResults, error) {
	leftRemaining, err := numeric.Sub(left.TakerAssetAmount, leftFilled)
	if err != nil {
		return 0, nil, invariant("left cumulative fill exceeds order amount")
	}
	rightRemaining, err := numeric.Sub(right.TakerAssetAmount, rightFilled)
	if err != nil {
		return 0, nil, invariant("right cumulative fill exceeds order amount")
	}

	leftSide, err := numeric.Mul(leftRemaining, right.TakerAssetAmount)
	if err != nil {
		return 0, nil, err
	}
	rightSide, err := numeric.Mul(rightRemaining, right.MakerAssetAmount)
	if err != nil {
		return 0, nil, err
	}

	var (
		status   Status
		leftRes  *FillResults
		rightRes *FillResults
	)
	if leftSide.Cmp(rightSide) <= 0 {
		status, leftRes, rightRes, err = fillLeftConstrained(left, right, leftStatus, rightStatus, leftFilled, rightFilled, leftRemaining)
	} else {
		status, leftRes, rightRes, err = fillRightConstrained(left, right, leftStatus, rightStatus, leftFilled, rightFilled, leftRemaining, rightRemaining)
	}
	if err != nil || status != StatusSuccess {
		return status, nil, err
	}

	// The taker keeps whatever the left maker sells beyond what the right
	// maker is owed. Underflow here would mean the taker pays more than
	// they receive, which must never happen.
	spread, err := numeric.Sub(leftRes.MakerAssetFilledAmount, rightRes.TakerAssetFilledAmount)
	if err != nil {
		return 0, nil, invariant("taker surplus is negative")
	}

	return StatusSuccess, &MatchedFillResults{
		Left:                       *leftRes,
		Right:                      *rightRes,
		LeftMakerAssetSpreadAmount: spread,
	}, nil
}

// fillLeftConstrained fully fills the left order, then fills the right
// order with the proportional taker amount that covers what the left maker
// is owed.
func fillLeftConstrained(
	left, right *order.Order,
	leftStatus, rightStatus order.Status,
	leftFilled, rightFilled, leftRemaining *big.Int,
) (Status, *FillResults, *FillResults, error) {
	status, leftRes, err := FillOrder(left, leftStatus, leftFilled, leftRemaining)
	if err != nil || status != StatusSuccess {
		return status, nil, nil, err
	}

	// Convert the left order's taker fill (denominated in the right
	// order's maker asset) into the right order's taker asset, guarding
	// the truncation before committing to it.
	ok, err := numeric.IsNegligibleRoundingError(
		leftRes.TakerAssetFilledAmount, right.MakerAssetAmount, right.TakerAssetAmount)
	if err != nil {
		return 0, nil, nil, err
	}
	if !ok {
		return StatusRoundingErrorTooLarge, nil, nil, nil
	}
	rightTakerFill, err := numeric.PartialAmount(
		leftRes.TakerAssetFilledAmount, right.MakerAssetAmount, right.TakerAssetAmount)
	if err != nil {
		return 0, nil, nil, err
	}

	status, rightRes, err := FillOrder(right, rightStatus, rightFilled, rightTakerFill)
	if err != nil || status != StatusSuccess {
		return status, nil, nil, err
	}

	// The right maker must supply at least what the left maker is owed;
	// the residual, if any, is rounding surplus kept by the right maker.
	if rightRes.MakerAssetFilledAmount.Cmp(leftRes.TakerAssetFilledAmount) < 0 {
		return 0, nil, nil, invariant("right maker fill below left taker fill")
	}
	return StatusSuccess, leftRes, rightRes, nil
}

// fillRightConstrained fully fills the right order and passes its maker
// fill through as the left order's taker fill target. The amount is already
// maker-asset-denominated, so no re-derivation by ratio happens and the two
// sides must land exactly equal.
func fillRightConstrained(
	left, right *order.Order,
	leftStatus, rightStatus order.Status,
	leftFilled, rightFilled, leftRemaining, rightRemaining *big.Int,
) (Status, *FillResults, *FillResults, error) {
	status, rightRes, err := FillOrder(right, rightStatus, rightFilled, rightRemaining)
	if err != nil || status != StatusSuccess {
		return status, nil, nil, err
	}

	if rightRes.MakerAssetFilledAmount.Cmp(leftRemaining) > 0 {
		return 0, nil, nil, invariant("right maker fill exceeds left remaining")
	}

	status, leftRes, err := FillOrder(left, leftStatus, leftFilled, rightRes.MakerAssetFilledAmount)
	if err != nil || status != StatusSuccess {
		return status, nil, nil, err
	}

	if leftRes.TakerAssetFilledAmount.Cmp(rightRes.MakerAssetFilledAmount) != 0 {
		return 0, nil, nil, invariant("left taker fill diverges from right maker fill")
	}
	return StatusSuccess, leftRes, rightRes, nil
}
