package match

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FillState is the persisted per-order fill record: the cumulative taker
// asset amount filled so far (monotonically non-decreasing, bounded by the
// order's taker asset amount) and the cancellation flag. Entries are never
// deleted; an exhausted or cancelled hash stays recorded.
type FillState struct {
	FilledTakerAssetAmount *big.Int
	Cancelled              bool
}

// FillUpdate replaces an order's cumulative filled amount.
type FillUpdate struct {
	OrderHash              common.Hash
	FilledTakerAssetAmount *big.Int
}

// FillStore is the injected key-value backing for fill state. Apply must be
// atomic across all updates: either every order's new cumulative amount
// lands or none does. Unknown hashes read as zero-filled, not cancelled.
type FillStore interface {
	FillState(hash common.Hash) (FillState, error)
	Apply(updates []FillUpdate) error
}

// Transferor is the external asset-proxy abstraction. A batch stages
// transfers and commits them all-or-nothing; a transfer fails at stage time
// on insufficient balance or allowance.
type Transferor interface {
	Batch() TransferBatch
}

// TransferBatch stages asset movements for one settlement.
type TransferBatch interface {
	Transfer(assetData []byte, from, to common.Address, amount *big.Int) error
	Commit() error
	Discard()
}
