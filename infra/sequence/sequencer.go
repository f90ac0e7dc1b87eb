package sequence

import "sync/atomic"

// Sequencer hands out the strictly monotonic settlement sequence. Every
// committed settlement carries exactly one value from it, so the journal
// is totally ordered and gaps are detectable on replay.
type Sequencer struct {
	next atomic.Uint64
}

// New starts the sequence at a given value: zero on a fresh store, the
// last journaled sequence after replay.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next settlement sequence number.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}
