package match

import (
	"math/big"
	"testing"

	"fenrir/domain/order"
)

func TestFillOrderCapsAtRemaining(t *testing.T) {
	o := sellOrder(leftMaker, assetA, assetB, 50, 100)

	status, res, err := FillOrder(o, order.StatusFillable, big.NewInt(60), big.NewInt(1000))
	if err != nil || status != StatusSuccess {
		t.Fatalf("status=%v err=%v", status, err)
	}
	wantAmount(t, res.TakerAssetFilledAmount, 40, "taker fill")
	wantAmount(t, res.MakerAssetFilledAmount, 20, "maker fill")
}

func TestFillOrderProportionalAmounts(t *testing.T) {
	o := sellOrder(leftMaker, assetA, assetB, 50, 100)
	o.MakerFee = big.NewInt(10)
	o.TakerFee = big.NewInt(4)

	status, res, err := FillOrder(o, order.StatusFillable, big.NewInt(0), big.NewInt(50))
	if err != nil || status != StatusSuccess {
		t.Fatalf("status=%v err=%v", status, err)
	}
	// 50/100 of the order: half of everything.
	wantAmount(t, res.MakerAssetFilledAmount, 25, "maker fill")
	wantAmount(t, res.TakerAssetFilledAmount, 50, "taker fill")
	wantAmount(t, res.MakerFeePaid, 5, "maker fee")
	wantAmount(t, res.TakerFeePaid, 2, "taker fee")
}

func TestFillOrderRejectsLargeRoundingLoss(t *testing.T) {
	// Filling 1 of 3 against a 1-for-3 order truncates the whole maker
	// amount: floor(1*1/3) = 0.
	o := sellOrder(leftMaker, assetA, assetB, 1, 3)

	status, res, err := FillOrder(o, order.StatusFillable, big.NewInt(0), big.NewInt(1))
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusRoundingErrorTooLarge {
		t.Fatalf("status = %v, want rounding error", status)
	}
	if res != nil {
		t.Error("rejected fill must not produce amounts")
	}
}

func TestFillOrderUnfillableStatuses(t *testing.T) {
	o := sellOrder(leftMaker, assetA, assetB, 5, 10)

	for _, st := range []order.Status{
		order.StatusInvalid,
		order.StatusExpired,
		order.StatusFullyFilled,
		order.StatusCancelled,
	} {
		status, _, err := FillOrder(o, st, big.NewInt(0), big.NewInt(10))
		if err != nil {
			t.Fatal(err)
		}
		if status != StatusOrderUnfillable {
			t.Errorf("status %v: got %v, want unfillable", st, status)
		}
	}
}

func TestFillOrderZeroRemaining(t *testing.T) {
	o := sellOrder(leftMaker, assetA, assetB, 5, 10)

	status, _, err := FillOrder(o, order.StatusFillable, big.NewInt(10), big.NewInt(1))
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusOrderUnfillable {
		t.Fatalf("status = %v, want unfillable", status)
	}
}

func TestFillOrderOverfilledStateAborts(t *testing.T) {
	o := sellOrder(leftMaker, assetA, assetB, 5, 10)

	_, _, err := FillOrder(o, order.StatusFillable, big.NewInt(11), big.NewInt(1))
	if !IsInvariant(err) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}
