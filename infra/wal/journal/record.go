// Package journal is the durable settlement log: a segmented, CRC-framed
// append-only file per directory, written after each committed match. It is
// an audit trail first, and a recovery path second: replaying it rebuilds a
// fill-state store from scratch.
package journal

import "time"

type RecordType uint8

const (
	RecordSettlement RecordType = iota
)

type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
