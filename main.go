package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlephTX/quote-writer/affinity"
	"github.com/AlephTX/quote-writer/config"
	"github.com/AlephTX/quote-writer/ingest"
	"github.com/AlephTX/quote-writer/registry"
	"github.com/AlephTX/quote-writer/shmtable"
	"github.com/AlephTX/quote-writer/stats"
	"github.com/AlephTX/quote-writer/stream"
)

func main() {
	log.Println("quote-writer: starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	reg, subscribed, err := registry.Load(cfg.RegistryPath, cfg.SubscribePath)
	if err != nil {
		log.Printf("registry: %v", err)
		os.Exit(20)
	}
	log.Printf("registry: loaded %d symbols, %d subscribed", reg.NSymbols(), len(subscribed))

	table, err := shmtable.Open(cfg.ShmPath, cfg.SourceID)
	if err != nil {
		log.Printf("shm: %v", err)
		os.Exit(1)
	}
	defer table.Close()

	if int64(reg.NSymbols()) != table.NSymbols() {
		log.Printf("shm: header n_symbols=%d does not match registry n_symbols=%d", table.NSymbols(), reg.NSymbols())
		os.Exit(1)
	}
	log.Printf("shm: opened %s, %d records", cfg.ShmPath, table.NRecords())

	if err := affinity.Pin(cfg.CPUCore); err != nil {
		log.Fatalf("affinity: %v", err)
	}
	log.Printf("affinity: pinned to core %d", cfg.CPUCore)

	mux, err := stream.NewMultiplexer(cfg.StreamBaseURL, subscribed)
	if err != nil {
		log.Printf("stream: %v", err)
		os.Exit(2)
	}
	log.Printf("stream: %d connection(s) covering %d symbol(s)", len(mux.Connections()), len(subscribed))

	counters := &stats.Counters{}
	pipeline := ingest.NewPipeline(reg, table, counters)

	signalCtx, stopSignal := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignal()

	runCtx, cancelRun := context.WithCancel(signalCtx)
	defer cancelRun()

	var fatalErr error
	deliver := func(connIndex int, frame []byte) {
		if err := pipeline.Deliver(frame); err != nil {
			fatalErr = err
			cancelRun()
		}
	}

	runErr := mux.Run(runCtx, deliver)

	printStats(counters)

	switch {
	case fatalErr != nil:
		exitForFatal(fatalErr)
	case signalCtx.Err() != nil:
		log.Println("quote-writer: shutdown signal received, exiting cleanly")
		os.Exit(0)
	case runErr != nil:
		log.Printf("stream: %v", runErr)
		os.Exit(3)
	default:
		os.Exit(0)
	}
}

func exitForFatal(err error) {
	var unknown *ingest.ErrUnknownSymbol
	var outOfRange *shmtable.ErrSlotOutOfRange
	switch {
	case errors.As(err, &unknown):
		log.Printf("ingest: %v", err)
		os.Exit(10)
	case errors.As(err, &outOfRange):
		log.Printf("shm: %v", err)
		os.Exit(11)
	default:
		log.Printf("ingest: unexpected fatal error: %v", err)
		os.Exit(1)
	}
}

func printStats(c *stats.Counters) {
	s := c.Snapshot()
	log.Printf("stats: total=%d dropped_json=%d dropped_price=%d max_proc_us=%d over_budget=%d",
		s.TotalMessages, s.DroppedMalformedJSON, s.DroppedUnparsablePrice, s.MaxProcUs, s.OverBudgetCount)
}
