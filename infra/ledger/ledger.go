// Package ledger is the in-process asset transfer collaborator. The real
// transfer mechanism is external to the core; this implementation exists so
// settlement and its conservation tests run against a counterparty with
// genuine all-or-nothing batch semantics.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"fenrir/domain/match"
)

// ErrInsufficientBalance is returned at stage time when a transfer would
// overdraw the sender, counting earlier transfers staged in the same batch.
var ErrInsufficientBalance = errors.New("ledger: insufficient balance or allowance")

type balanceKey struct {
	asset string
	owner common.Address
}

// Ledger holds multi-asset balances keyed by (asset descriptor, owner).
type Ledger struct {
	mu       sync.Mutex
	balances map[balanceKey]*big.Int
}

func New() *Ledger {
	return &Ledger{balances: make(map[balanceKey]*big.Int)}
}

// SetBalance seeds an account. Test and bootstrap helper.
func (l *Ledger) SetBalance(assetData []byte, owner common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[balanceKey{string(assetData), owner}] = new(big.Int).Set(amount)
}

// Balance returns the current balance of owner in the given asset.
func (l *Ledger) Balance(assetData []byte, owner common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balanceLocked(balanceKey{string(assetData), owner}))
}

func (l *Ledger) balanceLocked(k balanceKey) *big.Int {
	if b, ok := l.balances[k]; ok {
		return b
	}
	return new(big.Int)
}

// Batch opens a staged transfer batch. The ledger stays locked until the
// batch is committed or discarded, which is what makes the batch a single
// atomic unit: no other batch can interleave.
func (l *Ledger) Batch() match.TransferBatch {
	l.mu.Lock()
	return &batch{ledger: l, deltas: make(map[balanceKey]*big.Int)}
}

type batch struct {
	ledger *Ledger
	deltas map[balanceKey]*big.Int
	closed bool
}

func (b *batch) Transfer(assetData []byte, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("ledger: negative transfer amount")
	}
	fromKey := balanceKey{string(assetData), from}
	toKey := balanceKey{string(assetData), to}

	projected := new(big.Int).Add(b.ledger.balanceLocked(fromKey), b.delta(fromKey))
	if projected.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s short %s", ErrInsufficientBalance,
			from.Hex(), new(big.Int).Sub(amount, projected))
	}

	b.delta(fromKey).Sub(b.delta(fromKey), amount)
	b.delta(toKey).Add(b.delta(toKey), amount)
	return nil
}

func (b *batch) delta(k balanceKey) *big.Int {
	d, ok := b.deltas[k]
	if !ok {
		d = new(big.Int)
		b.deltas[k] = d
	}
	return d
}

func (b *batch) Commit() error {
	if b.closed {
		return errors.New("ledger: batch already closed")
	}
	for k, d := range b.deltas {
		bal := new(big.Int).Add(b.ledger.balanceLocked(k), d)
		b.ledger.balances[k] = bal
	}
	b.closed = true
	b.ledger.mu.Unlock()
	return nil
}

func (b *batch) Discard() {
	if b.closed {
		return
	}
	b.closed = true
	b.ledger.mu.Unlock()
}
