package store

import (
	"time"

	"github.com/krisalay/expiring-map/types"
)

/*
This file defines how entries are actually stored. The store is the single
source of truth for "is this key present and what is its value".

The store does NOT lock. The map owns one mutex that guards the store and the
expiration scheduler together, so a value and its timer bookkeeping are never
observed half-updated.
*/

/*
Store is a key → entry container with two counters on the side:

  - gen hands out a fresh generation for every write. It is shared by all keys,
    which makes it strictly increasing per key as well.
  - mods counts structural modifications made by callers (a new key appears or
    a key is removed through Remove). Traversals compare it to detect
    concurrent modification. Evictions do not touch it, so an expiration never
    breaks an in-progress traversal.
*/
type Store[K comparable, V comparable] struct {
	items map[K]*types.Entry[K, V]
	gen   uint64
	mods  uint64
}

func New[K comparable, V comparable]() *Store[K, V] {
	return &Store[K, V]{items: make(map[K]*types.Entry[K, V])}
}

// Get returns the live entry for key.
func (s *Store[K, V]) Get(key K) (*types.Entry[K, V], bool) {
	ent, ok := s.items[key]
	return ent, ok
}

/*
Put inserts or refreshes key.

Every call takes a new generation, even when the value is unchanged: a write is
what restarts the TTL window, and the new generation is what invalidates the
timer of the previous write.
*/
func (s *Store[K, V]) Put(key K, value V, deadline time.Time, now time.Time) (old V, hadOld bool, gen uint64) {
	s.gen++
	gen = s.gen

	if ent, ok := s.items[key]; ok {
		old, hadOld = ent.Value, true
		ent.Value = value
		ent.Deadline = deadline
		ent.Generation = gen
		ent.CreatedAt = now
		return old, hadOld, gen
	}

	s.items[key] = &types.Entry[K, V]{
		Key:        key,
		Value:      value,
		Deadline:   deadline,
		Generation: gen,
		CreatedAt:  now,
	}
	s.mods++
	return old, false, gen
}

/*
RemoveIfGeneration deletes key only if its live generation is gen.

This is the only removal the expiration worker performs. A mismatch means the
key was refreshed or removed after the timer was armed, and the call is a no-op.
*/
func (s *Store[K, V]) RemoveIfGeneration(key K, gen uint64) (V, bool) {
	ent, ok := s.items[key]
	if !ok || ent.Generation != gen {
		var zero V
		return zero, false
	}
	delete(s.items, key)
	return ent.Value, true
}

// Remove deletes key unconditionally and returns the value and retired generation.
func (s *Store[K, V]) Remove(key K) (V, uint64, bool) {
	ent, ok := s.items[key]
	if !ok {
		var zero V
		return zero, 0, false
	}
	delete(s.items, key)
	s.mods++
	return ent.Value, ent.Generation, true
}

// Len returns how many entries are in the store.
func (s *Store[K, V]) Len() int {
	return len(s.items)
}

func (s *Store[K, V]) ContainsKey(key K) bool {
	_, ok := s.items[key]
	return ok
}

// ContainsValue is a linear scan.
func (s *Store[K, V]) ContainsValue(value V) bool {
	for _, ent := range s.items {
		if ent.Value == value {
			return true
		}
	}
	return false
}

func (s *Store[K, V]) Keys() []K {
	out := make([]K, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	return out
}

func (s *Store[K, V]) Values() []V {
	out := make([]V, 0, len(s.items))
	for _, ent := range s.items {
		out = append(out, ent.Value)
	}
	return out
}

/*
Snapshot copies every entry.

The copies are detached from the store: later refreshes or evictions do not
change what a traversal over the snapshot sees.
*/
func (s *Store[K, V]) Snapshot() []types.Entry[K, V] {
	out := make([]types.Entry[K, V], 0, len(s.items))
	for _, ent := range s.items {
		out = append(out, *ent)
	}
	return out
}

// ModCount returns the structural modification counter.
func (s *Store[K, V]) ModCount() uint64 {
	return s.mods
}
