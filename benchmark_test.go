package expiringmap_test

import (
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	expiringmap "github.com/krisalay/expiring-map"
)

func newBenchmarkMap(b *testing.B, ttl time.Duration) *expiringmap.Map[string, int] {
	b.Helper()
	m, err := expiringmap.New(expiringmap.Config[string, int]{
		TTL:    ttl,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		b.Fatalf("new: %v", err)
	}
	b.Cleanup(func() { _ = m.Close() })
	return m
}

//
// ================= SINGLE THREAD BENCH =================
//

func BenchmarkMapGetHit(b *testing.B) {
	m := newBenchmarkMap(b, time.Minute)
	_, _, _ = m.Put("key", 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Get("key")
	}
}

func BenchmarkMapGetMiss(b *testing.B) {
	m := newBenchmarkMap(b, time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Get(fmt.Sprintf("miss-%d", i))
	}
}

//
// ================= WRITE BENCH =================
//

func BenchmarkMapPut(b *testing.B) {
	m := newBenchmarkMap(b, time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = m.Put(fmt.Sprintf("key-%d", i), i)
	}
}

// Refreshing one key cancels and re-arms its timer on every call.
func BenchmarkMapRefreshSameKey(b *testing.B) {
	m := newBenchmarkMap(b, time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = m.Put("hot", i)
	}
}

// Short TTL keeps the expiration worker busy while writers run.
func BenchmarkMapPutWithChurn(b *testing.B) {
	m := newBenchmarkMap(b, time.Millisecond)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = m.Put(fmt.Sprintf("key-%d", i%10000), i)
	}
}

//
// ================= PARALLEL BENCH =================
//

func BenchmarkMapParallelGet(b *testing.B) {
	m := newBenchmarkMap(b, time.Minute)
	for i := 0; i < 1000; i++ {
		_, _, _ = m.Put(fmt.Sprintf("key-%d", i), i)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Get("key-42")
		}
	})
}

func BenchmarkMapParallelMerge(b *testing.B) {
	m := newBenchmarkMap(b, time.Minute)
	add := func(a, c int) (int, bool) { return a + c, true }

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _, _ = m.Merge("counter", 1, add)
		}
	})
}

//
// ================= HIGH CONCURRENCY TEST =================
//

func BenchmarkMapHighConcurrency(b *testing.B) {
	m := newBenchmarkMap(b, time.Minute)

	keys := make([]string, 10000)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
		_, _, _ = m.Put(keys[i], i)
	}

	b.ResetTimer()

	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < b.N/100; j++ {
				k := keys[(id+j)%len(keys)]
				if j%10 == 0 {
					_, _, _ = m.Put(k, j)
				} else {
					m.Get(k)
				}
			}
		}(i)
	}
	wg.Wait()
}
