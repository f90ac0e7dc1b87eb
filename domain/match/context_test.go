package match

import (
	"errors"
	"testing"

	"fenrir/domain/numeric"
)

func TestValidateMatchComplementaryPair(t *testing.T) {
	left, right := complementaryPair(5, 10, 10, 2)
	if err := ValidateMatch(left, right); err != nil {
		t.Fatal(err)
	}
}

func TestValidateMatchAssetMismatch(t *testing.T) {
	left := sellOrder(leftMaker, assetA, assetB, 5, 10)
	right := sellOrder(rightMaker, assetA, assetB, 10, 2) // same direction, not complementary

	if err := ValidateMatch(left, right); !errors.Is(err, ErrAssetMismatch) {
		t.Errorf("expected ErrAssetMismatch, got %v", err)
	}
}

func TestValidateMatchNegativeSpread(t *testing.T) {
	// 5*1 < 100*200: the orders' prices do not cross.
	left, right := complementaryPair(5, 100, 1, 200)

	if err := ValidateMatch(left, right); !errors.Is(err, ErrNegativeSpread) {
		t.Errorf("expected ErrNegativeSpread, got %v", err)
	}
}

func TestValidateMatchZeroSpreadAccepted(t *testing.T) {
	// Exactly crossing prices are valid: the taker just earns nothing.
	left, right := complementaryPair(50, 100, 100, 50)
	if err := ValidateMatch(left, right); err != nil {
		t.Fatal(err)
	}
}

func TestValidateMatchOverflowIsHardError(t *testing.T) {
	left, right := complementaryPair(1, 1, 1, 1)
	left.MakerAssetAmount = numeric.MaxUint256
	right.MakerAssetAmount = numeric.MaxUint256

	if err := ValidateMatch(left, right); !errors.Is(err, numeric.ErrOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
}
