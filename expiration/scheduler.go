package expiration

import (
	"container/heap"
	"context"
	"log"
	"sync"
	"time"
)

// ExpireFunc is called by the worker, with the shared lock held, for every
// timer whose deadline has passed.
type ExpireFunc[K comparable] func(key K, gen uint64)

/*
Scheduler keeps at most one armed timer per key and evicts due keys from a
single background goroutine.

The scheduler has no lock of its own. It is handed the lock that guards the
data it expires; Arm, Cancel and Len must be called with that lock held, and
the worker takes it before touching the heap or calling expire.
*/
type Scheduler[K comparable] struct {
	mu     sync.Locker
	expire ExpireFunc[K]
	logger *log.Logger

	queue timerHeap[K]
	armed map[K]*timer[K]
	seq   uint64

	// wake is signalled when the earliest deadline changes. Buffered so a
	// signal is never lost while the worker is busy and never blocks a caller.
	wake chan struct{}

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewScheduler creates a stopped scheduler. Call Start to run the worker.
func NewScheduler[K comparable](mu sync.Locker, expire ExpireFunc[K], logger *log.Logger) *Scheduler[K] {
	if logger == nil {
		logger = log.Default()
	}
	s := &Scheduler[K]{
		mu:     mu,
		expire: expire,
		logger: logger,
		armed:  make(map[K]*timer[K]),
		wake:   make(chan struct{}, 1),
		cancel: func() {},
	}
	heap.Init(&s.queue)
	return s
}

/*
Arm schedules key to expire at deadline for generation gen.

A key has at most one armed timer: arming replaces whatever was armed before,
which also covers a caller that forgot to Cancel.
*/
func (s *Scheduler[K]) Arm(key K, gen uint64, deadline time.Time) {
	if old, ok := s.armed[key]; ok {
		heap.Remove(&s.queue, old.index)
	}

	s.seq++
	t := &timer[K]{key: key, gen: gen, deadline: deadline, seq: s.seq}
	heap.Push(&s.queue, t)
	s.armed[key] = t

	if t.index == 0 {
		s.signal()
	}
}

/*
Cancel drops the timer armed for key if it belongs to generation gen.

It is a no-op when gen is no longer the armed generation: that timer was
already replaced, cancelled or popped by the worker.
*/
func (s *Scheduler[K]) Cancel(key K, gen uint64) bool {
	t, ok := s.armed[key]
	if !ok || t.gen != gen {
		return false
	}

	head := t.index == 0
	heap.Remove(&s.queue, t.index)
	delete(s.armed, key)

	// The worker may be sleeping on this deadline.
	if head {
		s.signal()
	}
	return true
}

// Len returns the number of armed timers.
func (s *Scheduler[K]) Len() int {
	return len(s.queue)
}

// Start launches the worker. It stops when ctx is cancelled or Stop is called.
func (s *Scheduler[K]) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)
}

/*
Stop cancels the worker and waits for it to exit.

Stop is safe to call multiple times. It must not be called with the shared
lock held, because the worker may be waiting for it.
*/
func (s *Scheduler[K]) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

func (s *Scheduler[K]) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler[K]) run(ctx context.Context) {
	defer s.wg.Done()

	sleep := time.NewTimer(time.Hour)
	sleep.Stop()
	defer sleep.Stop()

	s.logger.Printf("[EXPIRATION] worker started")
	defer s.logger.Printf("[EXPIRATION] worker stopped")

	for {
		s.mu.Lock()
		now := time.Now()
		s.expireDueLocked(now)
		wait, pending := s.nextWaitLocked(now)
		s.mu.Unlock()

		var fire <-chan time.Time
		if pending {
			sleep.Reset(wait)
			fire = sleep.C
		}

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-fire:
		}
	}
}

// expireDueLocked pops every timer whose deadline is at or before now.
func (s *Scheduler[K]) expireDueLocked(now time.Time) int {
	fired := 0
	for len(s.queue) > 0 && !s.queue[0].deadline.After(now) {
		t := heap.Pop(&s.queue).(*timer[K])
		if s.armed[t.key] == t {
			delete(s.armed, t.key)
		}
		s.expire(t.key, t.gen)
		fired++
	}
	return fired
}

func (s *Scheduler[K]) nextWaitLocked(now time.Time) (time.Duration, bool) {
	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].deadline.Sub(now), true
}
