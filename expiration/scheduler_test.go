package expiration

import (
	"container/heap"
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"
)

type fired struct {
	key string
	gen uint64
}

type recorder struct {
	mu     sync.Mutex
	events []fired
}

func newTestScheduler(t *testing.T) (*Scheduler[string], *sync.Mutex, *recorder) {
	t.Helper()

	var mu sync.Mutex
	rec := &recorder{}
	s := NewScheduler[string](&mu, func(key string, gen uint64) {
		// Called with mu held.
		rec.events = append(rec.events, fired{key, gen})
	}, log.New(io.Discard, "", 0))
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s, &mu, rec
}

func (r *recorder) snapshot(mu *sync.Mutex) []fired {
	mu.Lock()
	defer mu.Unlock()
	out := make([]fired, len(r.events))
	copy(out, r.events)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestHeapOrdersByDeadlineThenArmOrder(t *testing.T) {
	var h timerHeap[string]
	base := time.Now()

	heap.Push(&h, &timer[string]{key: "late", deadline: base.Add(2 * time.Second), seq: 1})
	heap.Push(&h, &timer[string]{key: "tie-second", deadline: base.Add(time.Second), seq: 3})
	heap.Push(&h, &timer[string]{key: "tie-first", deadline: base.Add(time.Second), seq: 2})
	heap.Push(&h, &timer[string]{key: "early", deadline: base, seq: 4})

	want := []string{"early", "tie-first", "tie-second", "late"}
	for i, w := range want {
		got := heap.Pop(&h).(*timer[string])
		if got.key != w {
			t.Fatalf("pop %d: expected %s, got %s", i, w, got.key)
		}
		if got.index != -1 {
			t.Fatalf("popped timer should have index -1, got %d", got.index)
		}
	}
}

func TestWorkerFiresDueTimer(t *testing.T) {
	s, mu, rec := newTestScheduler(t)

	mu.Lock()
	s.Arm("a", 1, time.Now().Add(20*time.Millisecond))
	mu.Unlock()

	waitFor(t, time.Second, func() bool { return len(rec.snapshot(mu)) == 1 })

	got := rec.snapshot(mu)[0]
	if got.key != "a" || got.gen != 1 {
		t.Fatalf("unexpected fire %+v", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if s.Len() != 0 {
		t.Fatalf("expected no armed timers, got %d", s.Len())
	}
}

func TestCancelPreventsFire(t *testing.T) {
	s, mu, rec := newTestScheduler(t)

	mu.Lock()
	s.Arm("a", 1, time.Now().Add(20*time.Millisecond))
	if !s.Cancel("a", 1) {
		mu.Unlock()
		t.Fatalf("expected cancel to succeed")
	}
	mu.Unlock()

	time.Sleep(60 * time.Millisecond)
	if n := len(rec.snapshot(mu)); n != 0 {
		t.Fatalf("cancelled timer fired %d times", n)
	}
}

func TestCancelStaleGenerationIsNoop(t *testing.T) {
	s, mu, rec := newTestScheduler(t)

	mu.Lock()
	s.Arm("a", 2, time.Now().Add(20*time.Millisecond))
	if s.Cancel("a", 1) {
		mu.Unlock()
		t.Fatalf("cancel of stale generation should be a no-op")
	}
	mu.Unlock()

	waitFor(t, time.Second, func() bool { return len(rec.snapshot(mu)) == 1 })
	if got := rec.snapshot(mu)[0]; got.gen != 2 {
		t.Fatalf("expected generation 2 to fire, got %d", got.gen)
	}
}

func TestArmReplacesPreviousTimerForKey(t *testing.T) {
	s, mu, rec := newTestScheduler(t)

	mu.Lock()
	s.Arm("a", 1, time.Now().Add(10*time.Millisecond))
	s.Arm("a", 2, time.Now().Add(40*time.Millisecond))
	if s.Len() != 1 {
		mu.Unlock()
		t.Fatalf("expected one armed timer per key, got %d", s.Len())
	}
	mu.Unlock()

	waitFor(t, time.Second, func() bool { return len(rec.snapshot(mu)) == 1 })
	time.Sleep(20 * time.Millisecond)

	events := rec.snapshot(mu)
	if len(events) != 1 || events[0].gen != 2 {
		t.Fatalf("expected only generation 2 to fire, got %+v", events)
	}
}

func TestNearerDeadlineWakesWorker(t *testing.T) {
	s, mu, rec := newTestScheduler(t)

	mu.Lock()
	s.Arm("far", 1, time.Now().Add(time.Hour))
	mu.Unlock()

	// Give the worker time to go to sleep on the far deadline.
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	s.Arm("near", 2, time.Now().Add(10*time.Millisecond))
	mu.Unlock()

	waitFor(t, 500*time.Millisecond, func() bool { return len(rec.snapshot(mu)) == 1 })
	if got := rec.snapshot(mu)[0]; got.key != "near" {
		t.Fatalf("expected near to fire first, got %s", got.key)
	}
}

func TestSameDeadlineFiresInArmOrder(t *testing.T) {
	s, mu, rec := newTestScheduler(t)

	deadline := time.Now().Add(20 * time.Millisecond)
	mu.Lock()
	s.Arm("first", 1, deadline)
	s.Arm("second", 2, deadline)
	s.Arm("third", 3, deadline)
	mu.Unlock()

	waitFor(t, time.Second, func() bool { return len(rec.snapshot(mu)) == 3 })

	events := rec.snapshot(mu)
	for i, want := range []string{"first", "second", "third"} {
		if events[i].key != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, events[i].key)
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	s := NewScheduler[string](&mu, func(string, uint64) {}, log.New(io.Discard, "", 0))
	s.Start(context.Background())

	s.Stop()
	s.Stop()
}

func TestStopBeforeStart(t *testing.T) {
	var mu sync.Mutex
	s := NewScheduler[string](&mu, func(string, uint64) {}, log.New(io.Discard, "", 0))
	s.Stop()
}
