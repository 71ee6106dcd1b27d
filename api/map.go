package api

import (
	"time"

	"github.com/krisalay/expiring-map/types"
)

/*
Map defines the PUBLIC API of the expiring map.

Every key lives for the TTL the map was built with, counted from its last
successful write. A write is anything that stores a value: Put, PutAll,
PutIfAbsent inserting, Replace, ReplaceValue, ReplaceAll, Merge and the
Compute family when they keep a value. Every write restarts the full TTL.

Presence is always reported with a separate bool; the zero value of V is
returned for absent keys.
*/
type Map[K comparable, V comparable] interface {

	// Len returns the number of live keys.
	Len() int

	IsEmpty() bool

	ContainsKey(key K) bool

	// ContainsValue scans every entry.
	ContainsValue(value V) bool

	Get(key K) (V, bool)

	// GetOrDefault returns def when key is absent.
	GetOrDefault(key K, def V) V

	// Keys, Values and Entries return copies taken at call time.
	Keys() []K
	Values() []V
	Entries() []types.Entry[K, V]

	/*
		TTL returns the remaining lifetime of key.

		RETURN VALUES:
		--------------
		>= 0 : time left before the key is evicted
		-2   : key does not exist
	*/
	TTL(key K) time.Duration

	Stats() types.Stats

	/*
		Put stores value under key and restarts its TTL.
		It returns the previous value and whether there was one.
	*/
	Put(key K, value V) (V, bool, error)

	// PutAll stores every pair of m under one lock hold.
	PutAll(m map[K]V) error

	/*
		Remove deletes key and cancels its pending expiration, so a later write
		to the same key can never be evicted by the old timer.
	*/
	Remove(key K) (V, bool)

	// RemoveValue deletes key only if it currently maps to value.
	RemoveValue(key K, value V) bool

	// Clear removes every key through the same path as Remove, atomically.
	Clear()

	/*
		PutIfAbsent stores value only if key is absent.
		It returns the existing value and true when nothing was written.
	*/
	PutIfAbsent(key K, value V) (V, bool, error)

	// Replace writes value only if key is present and returns the old value.
	Replace(key K, value V) (V, bool, error)

	// ReplaceValue writes newValue only if key currently maps to oldValue.
	ReplaceValue(key K, oldValue, newValue V) (bool, error)

	/*
		Compute stores the result of fn for key, or removes key when fn
		returns ok == false. fn runs without the map lock held; if key changed
		while fn was running, fn is called again with the fresh value.
	*/
	Compute(key K, fn func(key K, old V, present bool) (V, bool)) (V, bool, error)

	/*
		ComputeIfAbsent stores fn(key) if key is absent. Concurrent callers for
		the same key share one call of fn.
	*/
	ComputeIfAbsent(key K, fn func(key K) (V, bool)) (V, bool, error)

	// ComputeIfPresent is Compute restricted to present keys.
	ComputeIfPresent(key K, fn func(key K, old V) (V, bool)) (V, bool, error)

	/*
		Merge stores value if key is absent, otherwise fn(old, value).
		fn returning ok == false removes key.
	*/
	Merge(key K, value V, fn func(old, value V) (V, bool)) (V, bool, error)

	/*
		ForEach calls fn for a snapshot of the entries.
		It fails with a conflict error if another caller adds or removes keys
		while the traversal is running. Expirations are not a conflict.
	*/
	ForEach(fn func(key K, value V)) error

	// ReplaceAll overwrites every value with fn(key, value) and restarts each TTL.
	ReplaceAll(fn func(key K, value V) V) error

	/*
		Close stops the background worker, flushes expiration events and drops
		every entry. Further writes fail. Close is idempotent.
	*/
	Close() error
}
