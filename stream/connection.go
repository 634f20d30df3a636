package stream

import (
	"context"
	"fmt"
	"time"

	"nhooyr.io/websocket"
)

const (
	frameBufferSize        = 64
	maxConsecutiveFailures = 10
)

// backoffSchedule is the reconnect delay ladder: 200ms, 500ms, 1s, 2s,
// 5s, 10s, then capped at 30s from the seventh failure on.
var backoffSchedule = []time.Duration{
	200 * time.Millisecond,
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

func backoffDelay(consecutiveFailures int) time.Duration {
	idx := consecutiveFailures - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(backoffSchedule) {
		idx = len(backoffSchedule) - 1
	}
	return backoffSchedule[idx]
}

// Connection owns one upstream websocket and delivers raw frame bytes to
// its own buffered channel, signalling readiness on the shared ready
// queue. It never parses JSON or touches shared memory: keeping I/O and
// publication on separate goroutines still leaves exactly one writer
// calling into shared memory, through the multiplexer's pump loop.
type Connection struct {
	Index int
	URL   string

	frames chan []byte
	ready  chan<- int
}

func newConnection(index int, url string, ready chan<- int) *Connection {
	return &Connection{
		Index:  index,
		URL:    url,
		frames: make(chan []byte, frameBufferSize),
		ready:  ready,
	}
}

// Run drives the reconnect loop until ctx is cancelled or ten consecutive
// failures exhaust the connection. A successful dial resets the failure
// count to zero even if the connection later drops.
func (c *Connection) Run(ctx context.Context) error {
	failures := 0
	for {
		err := c.connectAndStream(ctx, func() { failures = 0 })
		if ctx.Err() != nil {
			return ctx.Err()
		}

		failures++
		if failures >= maxConsecutiveFailures {
			return fmt.Errorf("stream: connection %d exhausted %d consecutive failures: %w", c.Index, failures, err)
		}

		delay := backoffDelay(failures)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Connection) connectAndStream(ctx context.Context, onConnected func()) error {
	conn, _, err := websocket.Dial(ctx, c.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()
	onConnected()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		select {
		case c.frames <- data:
		case <-ctx.Done():
			return ctx.Err()
		}

		// Best-effort readiness signal: when the shared ready queue is full
		// the signal is dropped. The frame stays buffered and is drained on
		// a later visit to this connection (at most BurstCap frames per
		// visit), so a full ready queue is not an error here.
		select {
		case c.ready <- c.Index:
		default:
		}
	}
}
