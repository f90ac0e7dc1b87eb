package ledger

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	assetA = []byte("asset-a")
	alice  = common.HexToAddress("0x01")
	bob    = common.HexToAddress("0x02")
)

func TestBatchCommit(t *testing.T) {
	l := New()
	l.SetBalance(assetA, alice, big.NewInt(100))

	b := l.Batch()
	if err := b.Transfer(assetA, alice, bob, big.NewInt(30)); err != nil {
		t.Fatal(err)
	}
	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}

	if got := l.Balance(assetA, alice); got.Cmp(big.NewInt(70)) != 0 {
		t.Errorf("alice: got %v, want 70", got)
	}
	if got := l.Balance(assetA, bob); got.Cmp(big.NewInt(30)) != 0 {
		t.Errorf("bob: got %v, want 30", got)
	}
}

func TestBatchDiscardLeavesNoTrace(t *testing.T) {
	l := New()
	l.SetBalance(assetA, alice, big.NewInt(100))

	b := l.Batch()
	if err := b.Transfer(assetA, alice, bob, big.NewInt(30)); err != nil {
		t.Fatal(err)
	}
	b.Discard()

	if got := l.Balance(assetA, alice); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("alice: got %v, want 100", got)
	}
	if got := l.Balance(assetA, bob); got.Sign() != 0 {
		t.Errorf("bob: got %v, want 0", got)
	}
}

func TestInsufficientBalanceCountsStagedTransfers(t *testing.T) {
	l := New()
	l.SetBalance(assetA, alice, big.NewInt(50))

	b := l.Batch()
	defer b.Discard()

	if err := b.Transfer(assetA, alice, bob, big.NewInt(40)); err != nil {
		t.Fatal(err)
	}
	// Only 10 left after the staged leg.
	err := b.Transfer(assetA, alice, bob, big.NewInt(20))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestStagedCreditIsSpendable(t *testing.T) {
	l := New()
	l.SetBalance(assetA, alice, big.NewInt(10))

	b := l.Batch()
	if err := b.Transfer(assetA, alice, bob, big.NewInt(10)); err != nil {
		t.Fatal(err)
	}
	// Bob received within the same batch and can pass it on.
	if err := b.Transfer(assetA, bob, alice, big.NewInt(5)); err != nil {
		t.Fatal(err)
	}
	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}

	if got := l.Balance(assetA, bob); got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("bob: got %v, want 5", got)
	}
}
