package match

import "math/big"

// FillResults holds the amounts moved for one order by one fill.
type FillResults struct {
	MakerAssetFilledAmount *big.Int
	TakerAssetFilledAmount *big.Int
	MakerFeePaid           *big.Int
	TakerFeePaid           *big.Int
}

// MatchedFillResults is the transient per-call result of matching two
// orders. It exists only between computation and settlement and is never
// persisted.
type MatchedFillResults struct {
	Left  FillResults
	Right FillResults

	// LeftMakerAssetSpreadAmount is what the taker keeps of the left
	// order's maker asset: the difference between what the left maker
	// sells and what the right maker is owed. Always >= 0.
	LeftMakerAssetSpreadAmount *big.Int
}
