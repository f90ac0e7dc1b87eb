package match

import (
	"bytes"

	"fenrir/domain/numeric"
	"fenrir/domain/order"
)

// ValidateMatch gates a match on the two structural preconditions:
//
//  1. the orders are asset-complementary (left sells what right buys and
//     vice versa, compared byte-exact), and
//  2. the spread is non-negative:
//     left.makerAmount*right.makerAmount >= left.takerAmount*right.takerAmount.
//
// The inequality is the two price ratios cross-multiplied so no division is
// involved: left's cost per unit received must be at least as favorable as
// right's requested inverse rate. Violations and multiplication overflow are
// hard errors, not soft statuses, because a caller submitting such a pair
// has a bug upstream.
func ValidateMatch(left, right *order.Order) error {
	if !bytes.Equal(left.MakerAssetData, right.TakerAssetData) ||
		!bytes.Equal(left.TakerAssetData, right.MakerAssetData) {
		return ErrAssetMismatch
	}

	makerProduct, err := numeric.Mul(left.MakerAssetAmount, right.MakerAssetAmount)
	if err != nil {
		return err
	}
	takerProduct, err := numeric.Mul(left.TakerAssetAmount, right.TakerAssetAmount)
	if err != nil {
		return err
	}
	if makerProduct.Cmp(takerProduct) < 0 {
		return ErrNegativeSpread
	}
	return nil
}
