package shmtable

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// recordSnapshot is a plain-value copy of record's published fields, used
// to diff the whole slot in one assertion instead of one field at a time.
type recordSnapshot struct {
	Seq      uint64
	SourceID int64
	SymbolID int64
	Bid      int64
	Ask      int64
}

func snapshotRecord(rec *record) recordSnapshot {
	return recordSnapshot{
		Seq:      rec.Seq,
		SourceID: rec.SourceID,
		SymbolID: rec.SymbolID,
		Bid:      rec.Bid,
		Ask:      rec.Ask,
	}
}

// writeFixture builds a minimal valid QSHM1 file with nSources x nSymbols
// zeroed records, as the external init tool would.
func writeFixture(t *testing.T, nSources, nSymbols int64) string {
	t.Helper()
	nRecords := nSources * nSymbols
	total := int64(headerSize) + nRecords*recordSize

	buf := make([]byte, total)
	copy(buf[0:8], "QSHM1\x00\x00\x00")
	putI64 := func(off int64, v int64) {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(v))
	}
	putI64(8, 1)             // version
	putI64(16, headerSize)   // header_size
	putI64(24, recordSize)   // record_size
	putI64(32, headerSize)   // records_offset
	putI64(40, 100_000_000)  // price_scale
	putI64(48, 1_000_000)    // ts_scale
	putI64(56, nSources)     // n_sources
	putI64(64, nSymbols)     // n_symbols
	putI64(72, nRecords)     // n_records
	putI64(80, total)        // shm_total_size

	path := filepath.Join(t.TempDir(), "quotes_v1.dat")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestOpen_ValidatesHeader(t *testing.T) {
	path := writeFixture(t, 2, 4)
	tbl, err := Open(path, 1)
	require.NoError(t, err)
	defer tbl.Close()

	require.Equal(t, int64(4), tbl.NSymbols())
	require.Equal(t, int64(8), tbl.NRecords())
	require.Equal(t, int64(1_000_000), tbl.TsScale())
}

func TestOpen_RejectsMismatchedRecordSize(t *testing.T) {
	path := writeFixture(t, 1, 1)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint64(b[24:32], 128) // corrupt record_size
	require.NoError(t, os.WriteFile(path, b, 0o644))

	_, err = Open(path, 1)
	require.Error(t, err)
	var target *ErrHeaderInvalid
	require.ErrorAs(t, err, &target)
}

func TestPublish_SlotOutOfRangeIsFatal(t *testing.T) {
	path := writeFixture(t, 1, 4)
	tbl, err := Open(path, 1)
	require.NoError(t, err)
	defer tbl.Close()

	err = tbl.Publish(4, 1, 2, tbl.Now())
	require.Error(t, err)
	var target *ErrSlotOutOfRange
	require.ErrorAs(t, err, &target)
}

func TestPublish_SeqlockRoundTrip(t *testing.T) {
	path := writeFixture(t, 2, 2)
	tbl, err := Open(path, 1)
	require.NoError(t, err)
	defer tbl.Close()

	idx, err := tbl.SlotIndex(1)
	require.NoError(t, err)

	require.NoError(t, tbl.Publish(1, 5000012345678, 5000087654321, tbl.Now()))

	rec := (*record)(unsafe.Pointer(&tbl.data[headerSize+idx*recordSize]))
	want := recordSnapshot{Seq: 2, SourceID: 1, SymbolID: 1, Bid: 5000012345678, Ask: 5000087654321}
	if diff := cmp.Diff(want, snapshotRecord(rec)); diff != "" {
		t.Fatalf("record mismatch after first publish (-want +got):\n%s", diff)
	}
	require.Greater(t, rec.Ts, int64(0))

	firstTs := rec.Ts
	require.NoError(t, tbl.Publish(1, 5000012345678, 5000087654321, firstTs))
	want.Seq = 4
	if diff := cmp.Diff(want, snapshotRecord(rec)); diff != "" {
		t.Fatalf("record mismatch after second publish (-want +got):\n%s", diff)
	}
	require.Equal(t, firstTs+1, rec.Ts)
}

func TestPublish_MonotonicTimestampAcrossCalls(t *testing.T) {
	path := writeFixture(t, 2, 1)
	tbl, err := Open(path, 1)
	require.NoError(t, err)
	defer tbl.Close()

	// Force the clock to return the same value twice.
	var calls int
	tbl.clock = func() int64 {
		calls++
		return 1000
	}

	require.NoError(t, tbl.Publish(0, 1, 2, tbl.Now()))
	idx, _ := tbl.SlotIndex(0)
	rec := (*record)(unsafe.Pointer(&tbl.data[headerSize+idx*recordSize]))
	require.Equal(t, int64(1000), rec.Ts)

	require.NoError(t, tbl.Publish(0, 1, 2, tbl.Now()))
	require.Equal(t, int64(1001), rec.Ts)
}
