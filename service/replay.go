package service

import (
	"fmt"

	"fenrir/domain/match"
	"fenrir/infra/state"
	"fenrir/infra/wal/journal"
)

/*
ReplayJournal rebuilds fill state from the settlement journal.

IMPORTANT:
- This MUST run before accepting traffic
- Cancellations are not journaled; a durable store keeps them, a fresh
  in-memory store loses them
*/

func ReplayJournal(dir string, store state.Store) (uint64, error) {
	lastSeq, err := journal.Replay(dir, func(rec *journal.Record) error {
		if rec.Type != journal.RecordSettlement {
			return nil
		}

		st, err := journal.DecodeSettlement(rec.Data)
		if err != nil {
			return fmt.Errorf("journal record %d: %w", rec.Seq, err)
		}

		// Records carry cumulative totals, so applying in journal order
		// converges on the latest fill for every order.
		return store.Apply([]match.FillUpdate{
			{OrderHash: st.LeftOrderHash, FilledTakerAssetAmount: st.LeftFilledTotal},
			{OrderHash: st.RightOrderHash, FilledTakerAssetAmount: st.RightFilledTotal},
		})
	})
	if err != nil {
		return 0, err
	}
	return lastSeq, nil
}
