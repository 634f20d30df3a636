// Package shmtable opens, validates, and publishes into the fixed-layout
// shared-memory slot table that external reader processes consume.
//
// The binary layout here must match the companion init tool and every
// reader byte-for-byte; nothing in this package may reorder or resize the
// structs below without breaking every other process attached to the file.
package shmtable

import "unsafe"

const (
	headerSize  = 4096
	recordSize  = 64
	magicString = "QSHM1\x00\x00\x00"
)

// header mirrors the 4096-byte file header described in the data model.
// Only the first 88 bytes carry meaning; the rest is reserved padding the
// init tool zero-fills and this writer never touches.
type header struct {
	Magic         [8]byte
	Version       int64
	HeaderSize    int64
	RecordSize    int64
	RecordsOffset int64
	PriceScale    int64
	TsScale       int64
	NSources      int64
	NSymbols      int64
	NRecords      int64
	ShmTotalSize  int64
	_pad          [headerSize - 88]byte
}

// record mirrors the 64-byte per-slot layout. Seq is accessed exclusively
// through atomic operations; the remaining fields are plain stores
// bracketed by the seqlock release stores on Seq.
type record struct {
	Seq       uint64
	SourceID  int64
	SymbolID  int64
	Bid       int64
	Ask       int64
	Ts        int64
	Reserved0 int64
	Reserved1 int64
}

func init() {
	if unsafe.Sizeof(header{}) != headerSize {
		panic("shmtable: header size drifted from 4096 bytes")
	}
	if unsafe.Sizeof(record{}) != recordSize {
		panic("shmtable: record size drifted from 64 bytes")
	}
}
