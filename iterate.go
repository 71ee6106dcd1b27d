package expiringmap

import "github.com/krisalay/expiring-map/types"

/*
Iterator walks a snapshot of the map taken when it was created.

The snapshot means later refreshes and expirations do not change what the
iterator yields. Keys added or removed by a caller after the snapshot are a
conflict: Next stops and Err returns ErrConcurrentModification.
*/
type Iterator[K comparable, V comparable] struct {
	m        *Map[K, V]
	entries  []types.Entry[K, V]
	expected uint64
	pos      int
	cur      types.Entry[K, V]
	err      error
}

// Iterator returns an iterator over the current entries.
func (m *Map[K, V]) Iterator() *Iterator[K, V] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &Iterator[K, V]{
		m:        m,
		entries:  m.store.Snapshot(),
		expected: m.store.ModCount(),
	}
}

// Next advances to the next entry. It returns false at the end of the
// snapshot or when a conflict was detected.
func (it *Iterator[K, V]) Next() bool {
	if it.err != nil {
		return false
	}
	if it.m.modCount() != it.expected {
		it.err = ErrConcurrentModification
		return false
	}
	if it.pos >= len(it.entries) {
		return false
	}

	it.cur = it.entries[it.pos]
	it.pos++
	return true
}

// Entry returns the entry Next moved to.
func (it *Iterator[K, V]) Entry() types.Entry[K, V] {
	return it.cur
}

// Err returns the conflict that stopped the traversal, if any.
func (it *Iterator[K, V]) Err() error {
	return it.err
}

func (m *Map[K, V]) modCount() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.ModCount()
}

/*
ForEach calls fn for every entry of a snapshot, without holding the lock.

fn must not add or remove keys of this map: like any other caller doing so
mid-traversal, that stops the traversal with ErrConcurrentModification.
*/
func (m *Map[K, V]) ForEach(fn func(key K, value V)) error {
	if fn == nil {
		return ErrNilFunction
	}

	it := m.Iterator()
	for it.Next() {
		e := it.Entry()
		fn(e.Key, e.Value)
	}
	return it.Err()
}

/*
ReplaceAll overwrites the value of every key with fn(key, value).

Each replacement is a write: it takes a new generation and restarts the TTL.
Keys that expired during the traversal are skipped. If another caller
refreshed a key since the snapshot, fn is applied again to the fresh value.
*/
func (m *Map[K, V]) ReplaceAll(fn func(key K, value V) V) error {
	if fn == nil {
		return ErrNilFunction
	}

	it := m.Iterator()
	for it.Next() {
		e := it.Entry()
		if err := m.replaceEntry(it, e.Key, e.Value, e.Generation, fn); err != nil {
			return err
		}
	}
	return it.Err()
}

func (m *Map[K, V]) replaceEntry(it *Iterator[K, V], key K, value V, gen uint64, fn func(K, V) V) error {
	for {
		next := fn(key, value)

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return ErrClosed
		}
		if m.store.ModCount() != it.expected {
			m.mu.Unlock()
			return ErrConcurrentModification
		}

		ent, ok := m.store.Get(key)
		if !ok {
			m.mu.Unlock()
			return nil
		}
		if ent.Generation != gen {
			value, gen = ent.Value, ent.Generation
			m.mu.Unlock()
			continue
		}

		m.putLocked(key, next)
		m.mu.Unlock()
		return nil
	}
}
