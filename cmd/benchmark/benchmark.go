package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	expiringmap "github.com/krisalay/expiring-map"
)

// ================= BENCHMARK =================

func main() {
	fmt.Println("\n================ EXPIRING MAP LOAD BENCHMARK =================")

	// ---------------- Config ----------------
	const (
		ttl         = 50 * time.Millisecond
		preloadKeys = 100000
		goroutines  = 200
		opsPerG     = 5000
		writeEvery  = 4 // one write per N operations
	)

	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("TTL          :", ttl)
	fmt.Println("Preload Keys :", preloadKeys)
	fmt.Println("Goroutines   :", goroutines)
	fmt.Println("Ops/Goroutine:", opsPerG)
	fmt.Println("Write ratio  :", fmt.Sprintf("1/%d", writeEvery))
	fmt.Println("---------------------------------")

	m, err := expiringmap.New(expiringmap.Config[string, int]{
		TTL:    ttl,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		log.Fatalf("create map: %v", err)
	}

	// ---------------- Preload ----------------
	fmt.Println("Preloading map...")
	for i := 0; i < preloadKeys; i++ {
		_, _, _ = m.Put(fmt.Sprintf("key-%d", i), i)
	}
	fmt.Println("Preload complete.")

	// ---------------- Load Test ----------------
	// The TTL is short on purpose: the expiration worker evicts while
	// readers and writers run, so the numbers include lock contention with it.
	fmt.Println("Running concurrency benchmark...")

	start := time.Now()

	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < goroutines; i++ {
		id := i
		g.Go(func() error {
			for j := 0; j < opsPerG; j++ {
				key := fmt.Sprintf("key-%d", (id*opsPerG+j)%preloadKeys)
				if j%writeEvery == 0 {
					if _, _, err := m.Put(key, j); err != nil {
						return err
					}
					continue
				}
				m.Get(key)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("benchmark: %v", err)
	}

	duration := time.Since(start)
	totalOps := goroutines * opsPerG
	stats := m.Stats()

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %d\n", totalOps)
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Printf("Live Entries     : %d\n", stats.Entries)
	fmt.Printf("Armed Timers     : %d\n", stats.ArmedTimers)
	fmt.Printf("Expired          : %d\n", stats.Expired)
	fmt.Println("=========================================")

	_ = m.Close()
}
