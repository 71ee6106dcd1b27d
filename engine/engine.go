package engine

import (
	"log"
	"time"

	"github.com/krisalay/expiring-map/notify"
	"github.com/krisalay/expiring-map/types"
)

/*
Engine is the policy layer of the map.
It decides the "behavior" around an entry, NOT its storage.

It decides:
- When a write expires (now + TTL, the same TTL for every write)
- Which metrics an operation records
- Where eviction events go

It does NOT:
- Store data
- Handle locking
- Schedule timers
*/
type Engine[K comparable, V any] struct {

	// TTL is applied identically to every write. It is fixed at construction.
	TTL time.Duration

	// Metrics is how we keep track of what the map is doing.
	Metrics types.Metrics

	// Notifier receives eviction events. It never runs user code inline.
	Notifier notify.Notifier[K, V]

	Logger *log.Logger

	now func() time.Time
}

/*
NewEngine creates an Engine.

Nil metrics, notifier or logger are replaced with no-op or default
implementations, so the rest of the code never checks for nil.
*/
func NewEngine[K comparable, V any](
	ttl time.Duration,
	metrics types.Metrics,
	notifier notify.Notifier[K, V],
	logger *log.Logger,
) *Engine[K, V] {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if notifier == nil {
		notifier = notify.Noop[K, V]{}
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Engine[K, V]{
		TTL:      ttl,
		Metrics:  metrics,
		Notifier: notifier,
		Logger:   logger,
		now:      time.Now,
	}
}

// Now returns the current time as seen by the engine.
func (e *Engine[K, V]) Now() time.Time {
	return e.now()
}

// Deadline returns the absolute expiry of a write made at now.
func (e *Engine[K, V]) Deadline(now time.Time) time.Time {
	return now.Add(e.TTL)
}

// OnRead records a hit or a miss.
func (e *Engine[K, V]) OnRead(hit bool) {
	if hit {
		e.Metrics.Hit()
	} else {
		e.Metrics.Miss()
	}
}

// OnWrite is called after every successful insert or refresh.
func (e *Engine[K, V]) OnWrite(size int) {
	e.Metrics.Write()
	e.Metrics.Size(size)
}

// OnRemove is called after a caller removed a key.
func (e *Engine[K, V]) OnRemove(size int) {
	e.Metrics.Remove()
	e.Metrics.Size(size)
}

/*
OnExpire is called by the expiration worker after it evicted key.
The event is handed to the notifier; the listener runs later, outside the lock.
*/
func (e *Engine[K, V]) OnExpire(key K, value V, size int) {
	e.Metrics.Expire()
	e.Metrics.Size(size)
	e.Notifier.Notify(notify.Event[K, V]{
		Key:       key,
		Value:     value,
		ExpiredAt: e.now(),
	})
}

// OnStale is called when a due timer no longer matched the live generation.
func (e *Engine[K, V]) OnStale() {
	e.Metrics.Stale()
}

// Close flushes pending eviction events.
func (e *Engine[K, V]) Close() {
	e.Notifier.Close()
}
