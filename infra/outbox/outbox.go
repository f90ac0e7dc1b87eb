// Package outbox is the durable event outbox between settlement and the
// broker: every committed settlement is recorded here first, and the
// broadcaster drains it with at-least-once delivery.
package outbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Entry --------------------

type Entry struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// binary encoding: [state:1][retries:4][lastAttempt:8][payload]
func encodeEntry(e *Entry) []byte {
	buf := make([]byte, 1+4+8+len(e.Payload))
	buf[0] = byte(e.State)
	binary.BigEndian.PutUint32(buf[1:5], e.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(e.LastAttempt))
	copy(buf[13:], e.Payload)
	return buf
}

func decodeEntry(seq uint64, b []byte) (*Entry, error) {
	if len(b) < 13 {
		return nil, errors.New("outbox: entry too short")
	}
	return &Entry{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     append([]byte{}, b[13:]...),
	}, nil
}

// -------------------- Outbox --------------------

type Outbox struct {
	db  *pebble.DB
	seq atomic.Uint64
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // undelivered events must survive a crash
	})
	if err != nil {
		return nil, err
	}

	o := &Outbox{db: db}
	last, err := o.maxSeq()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	o.seq.Store(last)
	return o, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Put records a new undelivered event and returns its sequence number.
func (o *Outbox) Put(payload []byte) (uint64, error) {
	seq := o.seq.Add(1)
	e := &Entry{Seq: seq, State: StateNew, Payload: payload}
	return seq, o.db.Set(keyFor(seq), encodeEntry(e), pebble.Sync)
}

// MarkSent flips an entry to SENT before the publish attempt, so a crash
// between publish and ack leans toward redelivery, never loss.
func (o *Outbox) MarkSent(seq uint64) error {
	return o.setState(seq, StateSent)
}

func (o *Outbox) MarkAcked(seq uint64) error {
	return o.setState(seq, StateAcked)
}

// MarkFailed re-queues an entry and bumps its retry count.
func (o *Outbox) MarkFailed(seq uint64) error {
	e, err := o.Get(seq)
	if err != nil {
		return err
	}
	e.State = StateFailed
	e.Retries++
	e.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeEntry(e), pebble.Sync)
}

func (o *Outbox) setState(seq uint64, state State) error {
	e, err := o.Get(seq)
	if err != nil {
		return err
	}
	e.State = state
	e.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeEntry(e), pebble.Sync)
}

func (o *Outbox) Get(seq uint64) (*Entry, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return decodeEntry(seq, val)
}

// -------------------- Scan --------------------

// ScanPending visits entries awaiting delivery: NEW, FAILED, and SENT
// entries that were never acked (stuck by a crash mid-publish).
func (o *Outbox) ScanPending(fn func(*Entry) error) error {
	return o.scan(func(e *Entry) error {
		if e.State == StateAcked {
			return nil
		}
		return fn(e)
	})
}

// Prune deletes acked entries.
func (o *Outbox) Prune() error {
	var acked []uint64
	err := o.scan(func(e *Entry) error {
		if e.State == StateAcked {
			acked = append(acked, e.Seq)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, seq := range acked {
		if err := o.db.Delete(keyFor(seq), pebble.Sync); err != nil {
			return err
		}
	}
	return nil
}

func (o *Outbox) scan(fn func(*Entry) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("settle/"),
		UpperBound: []byte("settle/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		e, err := decodeEntry(seq, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (o *Outbox) maxSeq() (uint64, error) {
	var max uint64
	err := o.scan(func(e *Entry) error {
		if e.Seq > max {
			max = e.Seq
		}
		return nil
	})
	return max, err
}

// -------------------- Helpers --------------------

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("settle/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte("settle/"))), "%d", &seq)
	return seq, err
}
