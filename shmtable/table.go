package shmtable

import (
	"fmt"
	"os"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"
)

// ErrHeaderInvalid signals a header validation failure; callers map this
// to exit(1).
type ErrHeaderInvalid struct{ Reason string }

func (e *ErrHeaderInvalid) Error() string { return "shmtable: invalid header: " + e.Reason }

// ErrSlotOutOfRange signals a computed slot index beyond n_records;
// callers map this to exit(11).
type ErrSlotOutOfRange struct {
	SourceID, SymbolID, Index, NRecords int64
}

func (e *ErrSlotOutOfRange) Error() string {
	return fmt.Sprintf("shmtable: slot index %d (source=%d symbol=%d) out of range [0,%d)",
		e.Index, e.SourceID, e.SymbolID, e.NRecords)
}

// Table is the memory-mapped slot table. A Table is safe for use by exactly
// one concurrent publisher; the single-writer invariant is enforced by
// convention (one process, one goroutine calling Publish), not by a lock.
type Table struct {
	data     []byte
	hdr      *header
	recs     []record
	sourceID int64
	prevTs   []int64 // per-slot high-watermark for monotonic ts enforcement
	clock    func() int64
}

// Open maps path read/write shared and validates its header against the
// layout this package expects. sourceID is this writer's constant source
// id, used to compute every slot it will ever address.
func Open(path string, sourceID int64) (*Table, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shmtable: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("shmtable: stat %s: %w", path, err)
	}
	if info.Size() < headerSize {
		return nil, &ErrHeaderInvalid{Reason: "file shorter than header"}
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(info.Size()),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shmtable: mmap %s: %w", path, err)
	}

	hdr := (*header)(unsafe.Pointer(&data[0]))

	if err := validateHeader(hdr, info.Size()); err != nil {
		syscall.Munmap(data)
		return nil, err
	}

	recsPtr := unsafe.Pointer(&data[hdr.RecordsOffset])
	recs := unsafe.Slice((*record)(recsPtr), hdr.NRecords)

	t := &Table{
		data:     data,
		hdr:      hdr,
		recs:     recs,
		sourceID: sourceID,
		prevTs:   make([]int64, hdr.NRecords),
		clock:    monotonicMicros,
	}
	return t, nil
}

func validateHeader(hdr *header, fileSize int64) error {
	if string(hdr.Magic[:]) != magicString {
		return &ErrHeaderInvalid{Reason: "magic mismatch"}
	}
	if hdr.Version != 1 {
		return &ErrHeaderInvalid{Reason: "unsupported version"}
	}
	if hdr.HeaderSize != headerSize {
		return &ErrHeaderInvalid{Reason: "header_size mismatch"}
	}
	if hdr.RecordSize != recordSize {
		return &ErrHeaderInvalid{Reason: "record_size mismatch"}
	}
	if hdr.RecordsOffset != headerSize {
		return &ErrHeaderInvalid{Reason: "records_offset mismatch"}
	}
	if hdr.PriceScale != 100_000_000 {
		return &ErrHeaderInvalid{Reason: "price_scale mismatch"}
	}
	if hdr.NSources <= 0 || hdr.NSymbols <= 0 {
		return &ErrHeaderInvalid{Reason: "n_sources/n_symbols non-positive"}
	}
	if hdr.NRecords != hdr.NSources*hdr.NSymbols {
		return &ErrHeaderInvalid{Reason: "n_records does not equal n_sources * n_symbols"}
	}
	wantTotal := hdr.RecordsOffset + hdr.NRecords*recordSize
	if hdr.ShmTotalSize != wantTotal {
		return &ErrHeaderInvalid{Reason: "shm_total_size mismatch"}
	}
	if fileSize != hdr.ShmTotalSize {
		return &ErrHeaderInvalid{Reason: "file length does not match shm_total_size"}
	}
	return nil
}

// NSymbols returns the header's n_symbols, the value the symbol registry's
// id space must match.
func (t *Table) NSymbols() int64 { return t.hdr.NSymbols }

// NRecords returns the header's n_records.
func (t *Table) NRecords() int64 { return t.hdr.NRecords }

// TsScale returns the header's declared timestamp scale; callers must use
// this value rather than a compiled-in constant.
func (t *Table) TsScale() int64 { return t.hdr.TsScale }

// SlotIndex computes the slot index for this writer's configured source id
// and the given symbol id.
func (t *Table) SlotIndex(symbolID int64) (int64, error) {
	idx := t.sourceID*t.hdr.NSymbols + symbolID
	if idx < 0 || idx >= t.hdr.NRecords {
		return 0, &ErrSlotOutOfRange{SourceID: t.sourceID, SymbolID: symbolID, Index: idx, NRecords: t.hdr.NRecords}
	}
	return idx, nil
}

// Now returns the current monotonic microsecond timestamp, the clock
// source backing the publication timestamp.
func (t *Table) Now() int64 { return t.clock() }

// Publish performs the seqlock write protocol for a single slot: odd,
// write fields, even. It never retries — a single writer always finds Seq
// even on entry and completes the sequence exactly once per call.
//
// If ts does not strictly exceed the previous value published to this
// slot, Publish substitutes prevTs+1 so that ts stays monotonically
// non-decreasing per slot even when the caller's clock reading ties or
// regresses.
func (t *Table) Publish(symbolID, bid, ask, ts int64) error {
	idx, err := t.SlotIndex(symbolID)
	if err != nil {
		return err
	}

	if ts <= t.prevTs[idx] {
		ts = t.prevTs[idx] + 1
	}
	t.prevTs[idx] = ts

	rec := &t.recs[idx]
	seqAddr := &rec.Seq

	s0 := atomic.LoadUint64(seqAddr)
	atomic.StoreUint64(seqAddr, s0+1)

	rec.SourceID = t.sourceID
	rec.SymbolID = symbolID
	rec.Bid = bid
	rec.Ask = ask
	rec.Ts = ts

	atomic.StoreUint64(seqAddr, s0+2)
	return nil
}

// Close unmaps the shared memory.
func (t *Table) Close() error {
	return syscall.Munmap(t.data)
}

var processStart = time.Now()

func monotonicMicros() int64 {
	return int64(time.Since(processStart) / time.Microsecond)
}
