package match

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"fenrir/domain/order"
)

// Resolver classifies order fillability. It is a pure read: hash the order,
// look up persisted fill state, compare against amounts and expiry.
// Signature validity is assumed verified upstream.
type Resolver struct {
	store FillStore
	now   func() time.Time
}

func NewResolver(store FillStore, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{store: store, now: now}
}

// Resolve returns the order's status, canonical hash and cumulative filled
// taker asset amount.
func (r *Resolver) Resolve(o *order.Order) (order.Status, common.Hash, *big.Int, error) {
	hash := o.Hash()
	zero := new(big.Int)

	if o.MakerAssetAmount == nil || o.MakerAssetAmount.Sign() <= 0 ||
		o.TakerAssetAmount == nil || o.TakerAssetAmount.Sign() <= 0 {
		return order.StatusInvalid, hash, zero, nil
	}

	st, err := r.store.FillState(hash)
	if err != nil {
		return order.StatusInvalid, hash, zero, err
	}
	filled := st.FilledTakerAssetAmount
	if filled == nil {
		filled = zero
	}

	switch {
	case st.Cancelled:
		return order.StatusCancelled, hash, filled, nil
	case filled.Cmp(o.TakerAssetAmount) >= 0:
		return order.StatusFullyFilled, hash, filled, nil
	case o.Expired(r.now().Unix()):
		return order.StatusExpired, hash, filled, nil
	}
	return order.StatusFillable, hash, filled, nil
}
