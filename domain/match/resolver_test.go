package match

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"fenrir/domain/order"
)

// fakeStore is the minimal FillStore for resolver tests.
type fakeStore struct {
	states map[common.Hash]FillState
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[common.Hash]FillState)}
}

func (f *fakeStore) FillState(hash common.Hash) (FillState, error) {
	st, ok := f.states[hash]
	if !ok {
		return FillState{FilledTakerAssetAmount: new(big.Int)}, nil
	}
	return st, nil
}

func (f *fakeStore) Apply(updates []FillUpdate) error {
	for _, u := range updates {
		prev := f.states[u.OrderHash]
		f.states[u.OrderHash] = FillState{
			FilledTakerAssetAmount: u.FilledTakerAssetAmount,
			Cancelled:              prev.Cancelled,
		}
	}
	return nil
}

func fixedNow(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

func TestResolveFreshOrder(t *testing.T) {
	r := NewResolver(newFakeStore(), fixedNow(1000))
	o := sellOrder(leftMaker, assetA, assetB, 5, 10)

	st, hash, filled, err := r.Resolve(o)
	if err != nil {
		t.Fatal(err)
	}
	if st != order.StatusFillable {
		t.Errorf("status = %v, want fillable", st)
	}
	if hash != o.Hash() {
		t.Error("hash mismatch")
	}
	if filled.Sign() != 0 {
		t.Errorf("filled = %v, want 0", filled)
	}
}

func TestResolvePartialAndFullFill(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store, fixedNow(1000))
	o := sellOrder(leftMaker, assetA, assetB, 5, 10)

	store.states[o.Hash()] = FillState{FilledTakerAssetAmount: big.NewInt(4)}
	st, _, filled, _ := r.Resolve(o)
	if st != order.StatusFillable || filled.Cmp(big.NewInt(4)) != 0 {
		t.Errorf("partial: status=%v filled=%v", st, filled)
	}

	store.states[o.Hash()] = FillState{FilledTakerAssetAmount: big.NewInt(10)}
	st, _, _, _ = r.Resolve(o)
	if st != order.StatusFullyFilled {
		t.Errorf("full: status = %v", st)
	}
}

func TestResolveCancelledBeatsExpiry(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store, fixedNow(5000))
	o := sellOrder(leftMaker, assetA, assetB, 5, 10)
	o.ExpirationTimeSeconds = 1000

	store.states[o.Hash()] = FillState{FilledTakerAssetAmount: new(big.Int), Cancelled: true}
	st, _, _, _ := r.Resolve(o)
	if st != order.StatusCancelled {
		t.Errorf("status = %v, want cancelled", st)
	}
}

func TestResolveExpired(t *testing.T) {
	r := NewResolver(newFakeStore(), fixedNow(5000))
	o := sellOrder(leftMaker, assetA, assetB, 5, 10)
	o.ExpirationTimeSeconds = 1000

	st, _, _, _ := r.Resolve(o)
	if st != order.StatusExpired {
		t.Errorf("status = %v, want expired", st)
	}
}

func TestResolveZeroAmountsInvalid(t *testing.T) {
	r := NewResolver(newFakeStore(), fixedNow(1000))
	o := sellOrder(leftMaker, assetA, assetB, 0, 10)

	st, _, _, _ := r.Resolve(o)
	if st != order.StatusInvalid {
		t.Errorf("status = %v, want invalid", st)
	}
}
