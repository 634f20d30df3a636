// Package ingest implements the per-message pipeline: parse the frame,
// look up the symbol, parse the prices, and publish, while tracking
// per-message latency.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/AlephTX/quote-writer/decimal"
	"github.com/AlephTX/quote-writer/registry"
	"github.com/AlephTX/quote-writer/shmtable"
	"github.com/AlephTX/quote-writer/stats"
)

// ErrUnknownSymbol is returned when an upstream frame names a symbol not
// present in the registry. It is always fatal: callers map it to exit(10).
type ErrUnknownSymbol struct{ Symbol string }

func (e *ErrUnknownSymbol) Error() string {
	return fmt.Sprintf("ingest: unknown symbol %q", e.Symbol)
}

// Pipeline wires the registry and shared-memory table together behind the
// single Deliver entry point the stream multiplexer calls for every frame.
type Pipeline struct {
	reg   *registry.Registry
	table *shmtable.Table
	stats *stats.Counters
}

func NewPipeline(reg *registry.Registry, table *shmtable.Table, st *stats.Counters) *Pipeline {
	return &Pipeline{reg: reg, table: table, stats: st}
}

// Deliver runs one frame through the pipeline. A nil return means the
// frame was published or safely dropped as a transient error (malformed
// JSON, unparseable price); any non-nil return is fatal and must
// terminate the process with the exit code its concrete type maps to
// (ErrUnknownSymbol -> 10, *shmtable.ErrSlotOutOfRange -> 11).
func (p *Pipeline) Deliver(frame []byte) error {
	t0 := time.Now()

	if !gjson.ValidBytes(frame) {
		p.stats.DroppedMalformedJSON.Add(1)
		return nil
	}

	results := gjson.GetManyBytes(frame, "data.s", "data.b", "data.a")
	sym, bid, ask := results[0], results[1], results[2]
	if !sym.Exists() || !bid.Exists() || !ask.Exists() {
		p.stats.DroppedMalformedJSON.Add(1)
		return nil
	}

	name := strings.ToUpper(sym.Str)
	symbolID, ok := p.reg.Lookup(name)
	if !ok {
		return &ErrUnknownSymbol{Symbol: name}
	}

	bidScaled, errBid := decimal.Parse(bid.Str)
	askScaled, errAsk := decimal.Parse(ask.Str)
	if errBid != nil || errAsk != nil {
		p.stats.DroppedUnparsablePrice.Add(1)
		return nil
	}

	ts := p.table.Now()
	if err := p.table.Publish(int64(symbolID), bidScaled, askScaled, ts); err != nil {
		return err
	}

	procUs := time.Since(t0).Microseconds()
	p.stats.RecordMessage(procUs)
	return nil
}
