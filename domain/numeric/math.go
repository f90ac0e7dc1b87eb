// Package numeric is the checked fixed-point arithmetic the matching core
// runs on: unsigned 256-bit integers, no floating point, explicit errors on
// overflow and underflow.
package numeric

import (
	"errors"
	"math/big"
)

var (
	ErrOverflow       = errors.New("numeric: uint256 overflow")
	ErrUnderflow      = errors.New("numeric: uint256 underflow")
	ErrDivisionByZero = errors.New("numeric: division by zero")
	ErrNegative       = errors.New("numeric: negative operand")
)

// MaxUint256 is the inclusive upper bound of every amount in the system.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Rounding guard constants: a partial fill loses at most 0.1% of value,
// measured in parts per million.
var (
	ppmScale     = big.NewInt(1_000_000)
	maxErrorPPM  = big.NewInt(1000)
)

func check(vals ...*big.Int) error {
	for _, v := range vals {
		if v == nil || v.Sign() < 0 {
			return ErrNegative
		}
		if v.Cmp(MaxUint256) > 0 {
			return ErrOverflow
		}
	}
	return nil
}

// Add returns a+b, failing on uint256 overflow.
func Add(a, b *big.Int) (*big.Int, error) {
	if err := check(a, b); err != nil {
		return nil, err
	}
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(MaxUint256) > 0 {
		return nil, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b, failing on underflow.
func Sub(a, b *big.Int) (*big.Int, error) {
	if err := check(a, b); err != nil {
		return nil, err
	}
	if b.Cmp(a) > 0 {
		return nil, ErrUnderflow
	}
	return new(big.Int).Sub(a, b), nil
}

// Mul returns a*b, failing on uint256 overflow.
func Mul(a, b *big.Int) (*big.Int, error) {
	if err := check(a, b); err != nil {
		return nil, err
	}
	prod := new(big.Int).Mul(a, b)
	if prod.Cmp(MaxUint256) > 0 {
		return nil, ErrOverflow
	}
	return prod, nil
}

// PartialAmount returns floor(numerator*target/denominator), the exact
// proportional share of target taken at numerator/denominator.
func PartialAmount(numerator, denominator, target *big.Int) (*big.Int, error) {
	if err := check(numerator, denominator, target); err != nil {
		return nil, err
	}
	if denominator.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	prod := new(big.Int).Mul(numerator, target)
	if prod.Cmp(MaxUint256) > 0 {
		return nil, ErrOverflow
	}
	return prod.Quo(prod, denominator), nil
}

// IsNegligibleRoundingError reports whether computing
// floor(numerator*target/denominator) loses a negligible fraction of value.
// The threshold is the reference constant: the fill is acceptable when
// floor(remainder * 1e6 / (numerator * target)) does not exceed 1000, i.e.
// the relative error is at most 0.1%.
func IsNegligibleRoundingError(numerator, denominator, target *big.Int) (bool, error) {
	if err := check(numerator, denominator, target); err != nil {
		return false, err
	}
	if denominator.Sign() == 0 {
		return false, ErrDivisionByZero
	}

	rem := new(big.Int).Mul(numerator, target)
	rem.Rem(rem, denominator)
	if rem.Sign() == 0 {
		return true, nil // exact division
	}

	// rem > 0 implies numerator > 0 and target > 0, so the scale below
	// is never zero.
	scale := new(big.Int).Mul(numerator, target)
	if scale.Cmp(MaxUint256) > 0 {
		return false, ErrOverflow
	}

	errPPM := rem.Mul(rem, ppmScale)
	errPPM.Quo(errPPM, scale)
	return errPPM.Cmp(maxErrorPPM) <= 0, nil
}
