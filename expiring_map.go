// Package expiringmap implements a thread-safe map whose entries expire a
// fixed TTL after their last write.
//
// Pending expirations are kept in one deadline-ordered heap served by a
// single background goroutine per map. Each write is tagged with a fresh
// generation and an eviction only deletes the key if the generation still
// matches, so a timer left over from an older write can never delete a newer
// value. One lock guards values and timers together.
package expiringmap

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/krisalay/expiring-map/api"
	"github.com/krisalay/expiring-map/engine"
	"github.com/krisalay/expiring-map/expiration"
	"github.com/krisalay/expiring-map/notify"
	"github.com/krisalay/expiring-map/store"
	"github.com/krisalay/expiring-map/types"
)

// NoKey is returned by TTL for a key that does not exist.
const NoKey time.Duration = -2

var _ api.Map[string, int] = (*Map[string, int])(nil)

/*
Map is the expiring map.
This struct is the orchestrator that connects:
- the store (values, generations)
- the scheduler (pending expirations, background worker)
- the engine (TTL, metrics, eviction events)

Ownership model:
Map owns its worker goroutines. Call Close to stop them.
*/
type Map[K comparable, V comparable] struct {

	// mu is the single lock domain for store and scheduler. The scheduler's
	// worker takes it too, so an eviction never interleaves with a caller.
	mu sync.RWMutex

	store  *store.Store[K, V]
	sched  *expiration.Scheduler[K]
	engine *engine.Engine[K, V]

	// sf makes concurrent ComputeIfAbsent calls for one key share a single
	// call of the mapping function. flights hands each key in flight its own
	// singleflight token, so keys are never compared by their printed form.
	sf       singleflight.Group
	flightMu sync.Mutex
	flights  map[K]*flight
	flightID uint64

	closed  bool
	expired uint64
	stale   uint64
}

// New constructs a map and starts its expiration worker.
func New[K comparable, V comparable](cfg Config[K, V]) (*Map[K, V], error) {
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTTL, cfg.TTL)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	var notifier notify.Notifier[K, V]
	if cfg.OnExpire != nil {
		notifier = notify.NewAsync[K, V](notify.Listener[K, V](cfg.OnExpire), cfg.EventBuffer, logger)
	}

	m := &Map[K, V]{
		store:   store.New[K, V](),
		engine:  engine.NewEngine[K, V](cfg.TTL, cfg.Metrics, notifier, logger),
		flights: make(map[K]*flight),
	}
	m.sched = expiration.NewScheduler[K](&m.mu, m.expireLocked, logger)
	m.sched.Start(context.Background())

	return m, nil
}

/*
Close stops the expiration worker, drops every entry and flushes queued
eviction events. Writes after Close fail with ErrClosed; reads see an empty map.

Close is safe to call multiple times.
*/
func (m *Map[K, V]) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.clearLocked()
	m.mu.Unlock()

	// Outside the lock: the worker may be waiting for it.
	m.sched.Stop()
	m.engine.Close()
	return nil
}

func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Len()
}

func (m *Map[K, V]) IsEmpty() bool {
	return m.Len() == 0
}

func (m *Map[K, V]) ContainsKey(key K) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.ContainsKey(key)
}

func (m *Map[K, V]) ContainsValue(value V) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.ContainsValue(value)
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ent, ok := m.store.Get(key)
	m.engine.OnRead(ok)
	if !ok {
		var zero V
		return zero, false
	}
	return ent.Value, true
}

func (m *Map[K, V]) GetOrDefault(key K, def V) V {
	if v, ok := m.Get(key); ok {
		return v
	}
	return def
}

func (m *Map[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Keys()
}

func (m *Map[K, V]) Values() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Values()
}

// Entries returns a copy of every entry, including deadlines and generations.
func (m *Map[K, V]) Entries() []types.Entry[K, V] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Snapshot()
}

// TTL returns how long key has left, or NoKey.
func (m *Map[K, V]) TTL(key K) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ent, ok := m.store.Get(key)
	if !ok {
		return NoKey
	}

	d := ent.Deadline.Sub(m.engine.Now())
	if d < 0 {
		// Due, the worker has not reached it yet.
		return 0
	}
	return d
}

func (m *Map[K, V]) Stats() types.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return types.Stats{
		Entries:     m.store.Len(),
		ArmedTimers: m.sched.Len(),
		Expired:     m.expired,
		StaleTimers: m.stale,
	}
}

// Put stores value under key and restarts its TTL.
func (m *Map[K, V]) Put(key K, value V) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		var zero V
		return zero, false, ErrClosed
	}

	old, replaced := m.putLocked(key, value)
	return old, replaced, nil
}

// PutAll stores every pair of src under one lock hold.
func (m *Map[K, V]) PutAll(src map[K]V) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	for k, v := range src {
		m.putLocked(k, v)
	}
	return nil
}

// Remove deletes key and cancels its pending expiration.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(key)
}

// Clear removes every key atomically.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

/*
putLocked is the only write path. It replaces the value, takes a new
generation, cancels the timer of the previous generation and arms a new one
for the full TTL.
*/
func (m *Map[K, V]) putLocked(key K, value V) (V, bool) {
	now := m.engine.Now()
	deadline := m.engine.Deadline(now)

	var prevGen uint64
	if ent, ok := m.store.Get(key); ok {
		prevGen = ent.Generation
	}

	old, replaced, gen := m.store.Put(key, value, deadline, now)
	if replaced {
		m.sched.Cancel(key, prevGen)
	}
	m.sched.Arm(key, gen, deadline)

	m.engine.OnWrite(m.store.Len())
	return old, replaced
}

// removeLocked is the only caller-driven delete path.
func (m *Map[K, V]) removeLocked(key K) (V, bool) {
	value, gen, ok := m.store.Remove(key)
	if !ok {
		return value, false
	}
	m.sched.Cancel(key, gen)

	m.engine.OnRemove(m.store.Len())
	return value, true
}

func (m *Map[K, V]) clearLocked() {
	for _, k := range m.store.Keys() {
		m.removeLocked(k)
	}
}

/*
expireLocked is called by the scheduler's worker with mu held.

A generation mismatch means the key was refreshed or removed after the timer
was armed; the eviction is dropped and only counted.
*/
func (m *Map[K, V]) expireLocked(key K, gen uint64) {
	value, ok := m.store.RemoveIfGeneration(key, gen)
	if !ok {
		m.stale++
		m.engine.OnStale()
		return
	}

	m.expired++
	m.engine.OnExpire(key, value, m.store.Len())
}

// generationLocked returns the live generation of key, 0 when absent.
// Generations start at 1.
func (m *Map[K, V]) generationLocked(key K) uint64 {
	if ent, ok := m.store.Get(key); ok {
		return ent.Generation
	}
	return 0
}
