package state

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"fenrir/domain/match"
)

// Memory is the in-process backend used by tests and the replay path.
type Memory struct {
	mu      sync.RWMutex
	entries map[common.Hash]match.FillState
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[common.Hash]match.FillState)}
}

func (m *Memory) FillState(hash common.Hash) (match.FillState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.entries[hash]
	if !ok {
		return match.FillState{FilledTakerAssetAmount: new(big.Int)}, nil
	}
	return match.FillState{
		FilledTakerAssetAmount: new(big.Int).Set(st.FilledTakerAssetAmount),
		Cancelled:              st.Cancelled,
	}, nil
}

func (m *Memory) Apply(updates []match.FillUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range updates {
		prev := m.entries[u.OrderHash]
		m.entries[u.OrderHash] = match.FillState{
			FilledTakerAssetAmount: new(big.Int).Set(u.FilledTakerAssetAmount),
			Cancelled:              prev.Cancelled,
		}
	}
	return nil
}

func (m *Memory) Cancel(hash common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.entries[hash]
	if st.FilledTakerAssetAmount == nil {
		st.FilledTakerAssetAmount = new(big.Int)
	}
	st.Cancelled = true
	m.entries[hash] = st
	return nil
}
