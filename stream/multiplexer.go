// Package stream owns the set of upstream websocket connections that
// together cover every subscribed symbol, multiplexing their frames onto a
// single ingest loop with bounded per-connection fairness.
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// BurstCap bounds how many frames the Multiplexer drains from one
// connection's buffer before moving on to the next ready connection.
const BurstCap = 8

// StartupSpacing is the delay between opening successive connections, to
// avoid bursting the upstream all at once.
const StartupSpacing = time.Second

// ErrNoSymbols is returned when NewMultiplexer is asked to build a
// connection set for an empty subscribe list.
var ErrNoSymbols = errors.New("stream: no subscribed symbols")

// Multiplexer fans in frames from every connection and hands each one to
// a single deliver callback, in the order connections signal readiness.
type Multiplexer struct {
	conns []*Connection
	ready chan int
}

// NewMultiplexer partitions symbols into groups of at most
// MaxSymbolsPerConnection and builds one Connection per group. Building
// the connection set can fail outright (e.g. an unparseable base URL) —
// that failure is distinct from any individual connection's later retry
// exhaustion, and is raised before any socket is ever opened.
func NewMultiplexer(baseURL string, symbols []string) (*Multiplexer, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	groups := ChunkSymbols(symbols, MaxSymbolsPerConnection)
	ready := make(chan int, len(groups)*4)
	conns := make([]*Connection, len(groups))
	for i, g := range groups {
		u, err := buildStreamURL(baseURL, g)
		if err != nil {
			return nil, err
		}
		conns[i] = newConnection(i, u, ready)
	}

	return &Multiplexer{conns: conns, ready: ready}, nil
}

// Connections exposes the built connection set, mainly for tests and
// startup logging (group sizes, URLs).
func (m *Multiplexer) Connections() []*Connection { return m.conns }

// Run launches every connection with startup spacing and services the
// ready queue until ctx is cancelled or a connection exhausts its
// retries, in which case Run returns that connection's error.
//
// deliver is invoked synchronously on the single goroutine that calls
// Run; it is the only caller of the ingest pipeline and, transitively,
// the shared-memory table's Publish.
func (m *Multiplexer) Run(ctx context.Context, deliver func(connIndex int, frame []byte)) error {
	g, gctx := errgroup.WithContext(ctx)

	for i, c := range m.conns {
		if i > 0 {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-time.After(StartupSpacing):
			}
		}
		c := c
		g.Go(func() error { return c.Run(gctx) })
	}

	m.pump(gctx, deliver)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	return nil
}

func (m *Multiplexer) pump(ctx context.Context, deliver func(connIndex int, frame []byte)) {
	for {
		select {
		case <-ctx.Done():
			return
		case idx := <-m.ready:
			c := m.conns[idx]
		drain:
			for n := 0; n < BurstCap; n++ {
				select {
				case frame := <-c.frames:
					deliver(idx, frame)
				default:
					break drain
				}
			}
		}
	}
}
