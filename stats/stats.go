// Package stats holds the ingest pipeline's performance counters. All
// fields are atomics so the shutdown-signal path can read a consistent
// snapshot without a lock.
package stats

import "sync/atomic"

// Counters are updated only from the single ingest-loop goroutine.
type Counters struct {
	TotalMessages          atomic.Int64
	DroppedMalformedJSON   atomic.Int64
	DroppedUnparsablePrice atomic.Int64
	MaxProcUs              atomic.Int64
	OverBudgetCount        atomic.Int64
}

// Snapshot is a plain-value copy suitable for printing.
type Snapshot struct {
	TotalMessages          int64
	DroppedMalformedJSON   int64
	DroppedUnparsablePrice int64
	MaxProcUs              int64
	OverBudgetCount        int64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		TotalMessages:          c.TotalMessages.Load(),
		DroppedMalformedJSON:   c.DroppedMalformedJSON.Load(),
		DroppedUnparsablePrice: c.DroppedUnparsablePrice.Load(),
		MaxProcUs:              c.MaxProcUs.Load(),
		OverBudgetCount:        c.OverBudgetCount.Load(),
	}
}

// RecordMessage folds one message's processing time into the counters.
// procUs is the elapsed microseconds between frame delivery and publish.
const overBudgetThresholdUs = 5000

func (c *Counters) RecordMessage(procUs int64) {
	c.TotalMessages.Add(1)
	if procUs > overBudgetThresholdUs {
		c.OverBudgetCount.Add(1)
	}
	for {
		cur := c.MaxProcUs.Load()
		if procUs <= cur {
			return
		}
		if c.MaxProcUs.CompareAndSwap(cur, procUs) {
			return
		}
	}
}
