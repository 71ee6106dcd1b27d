package notify

import (
	"log"
	"sync"
	"sync/atomic"
)

/*
Async delivers events to a listener on one background goroutine.

Events queue in a buffered channel. If the queue is full the event is DROPPED
and counted: blocking here would block the expiration worker, which holds the
map lock.
*/
type Async[K comparable, V any] struct {
	listener Listener[K, V]
	logger   *log.Logger

	// mu guards ch against a send racing with Close.
	mu     sync.RWMutex
	ch     chan Event[K, V]
	closed bool

	dropped atomic.Uint64
	wg      sync.WaitGroup
}

// NewAsync starts the delivery goroutine. buffer <= 0 selects 1024.
func NewAsync[K comparable, V any](listener Listener[K, V], buffer int, logger *log.Logger) *Async[K, V] {
	if buffer <= 0 {
		buffer = 1024
	}
	if logger == nil {
		logger = log.Default()
	}

	a := &Async[K, V]{
		listener: listener,
		logger:   logger,
		ch:       make(chan Event[K, V], buffer),
	}

	a.wg.Add(1)
	go a.worker()

	return a
}

// Notify queues ev without blocking.
func (a *Async[K, V]) Notify(ev Event[K, V]) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return
	}

	select {
	case a.ch <- ev:
	default:
		if a.dropped.Add(1) == 1 {
			a.logger.Printf("[NOTIFY] listener queue full (%d), dropping events", cap(a.ch))
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (a *Async[K, V]) Dropped() uint64 {
	return a.dropped.Load()
}

func (a *Async[K, V]) worker() {
	defer a.wg.Done()

	for ev := range a.ch {
		a.deliver(ev)
	}
}

// deliver isolates the worker from a panicking listener.
func (a *Async[K, V]) deliver(ev Event[K, V]) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Printf("[NOTIFY] listener panic for key %v: %v", ev.Key, r)
		}
	}()
	a.listener(ev.Key, ev.Value)
}

/*
Close stops accepting events, delivers what is already queued and waits for
the worker to finish. Safe to call multiple times.
*/
func (a *Async[K, V]) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	a.wg.Wait()
}
