package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestPump_DrainsBurstCapThenMovesOn verifies that pump services a
// connection for at most BurstCap frames per ready signal, so one noisy
// connection cannot starve the others indefinitely.
func TestPump_DrainsBurstCapThenMovesOn(t *testing.T) {
	ready := make(chan int, 8)
	noisy := newConnection(0, "wss://noisy", ready)
	quiet := newConnection(1, "wss://quiet", ready)
	m := &Multiplexer{conns: []*Connection{noisy, quiet}, ready: ready}

	for i := 0; i < BurstCap+3; i++ {
		noisy.frames <- []byte("n")
	}
	quiet.frames <- []byte("q")
	ready <- 0
	ready <- 1

	var delivered []int
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.pump(ctx, func(connIndex int, frame []byte) {
			delivered = append(delivered, connIndex)
		})
	}()
	<-done

	require.Equal(t, BurstCap, countIndex(delivered, 0), "noisy connection should stop at the burst cap")
	require.Contains(t, delivered, 1, "quiet connection must still be serviced")
}

func countIndex(xs []int, v int) int {
	n := 0
	for _, x := range xs {
		if x == v {
			n++
		}
	}
	return n
}

func TestMultiplexer_NoSymbolsIsError(t *testing.T) {
	_, err := NewMultiplexer("wss://fstream.binance.com/stream", nil)
	require.ErrorIs(t, err, ErrNoSymbols)
}
