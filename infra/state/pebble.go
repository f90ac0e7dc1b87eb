package state

import (
	"errors"
	"math/big"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"fenrir/domain/match"
)

var fillKeyPrefix = []byte("fill/")

// Pebble is the default durable backend: one keyed record per order hash,
// updates applied through a synced batch so both orders' fills land
// together or not at all.
type Pebble struct {
	db *pebble.DB
}

func OpenPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // fill state must survive a crash
	})
	if err != nil {
		return nil, err
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Close() error {
	return p.db.Close()
}

func (p *Pebble) FillState(hash common.Hash) (match.FillState, error) {
	val, closer, err := p.db.Get(fillKey(hash))
	if errors.Is(err, pebble.ErrNotFound) {
		return match.FillState{FilledTakerAssetAmount: new(big.Int)}, nil
	}
	if err != nil {
		return match.FillState{}, err
	}
	defer closer.Close()

	return decodeRecord(val)
}

func (p *Pebble) Apply(updates []match.FillUpdate) error {
	batch := p.db.NewBatch()
	defer batch.Close()

	for _, u := range updates {
		cur, err := p.FillState(u.OrderHash)
		if err != nil {
			return err
		}
		rec := encodeRecord(u.FilledTakerAssetAmount, cur.Cancelled)
		if err := batch.Set(fillKey(u.OrderHash), rec, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (p *Pebble) Cancel(hash common.Hash) error {
	cur, err := p.FillState(hash)
	if err != nil {
		return err
	}
	rec := encodeRecord(cur.FilledTakerAssetAmount, true)
	return p.db.Set(fillKey(hash), rec, pebble.Sync)
}

func fillKey(hash common.Hash) []byte {
	return append(append([]byte{}, fillKeyPrefix...), hash.Bytes()...)
}
