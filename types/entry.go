package types

import "time"

/*
Entry is one live key of the map.

Entries are owned by the store. Everything outside the store refers to an
entry by (Key, Generation) and never keeps the value around.
*/
type Entry[K comparable, V any] struct {
	Key   K
	Value V

	// Deadline is the absolute time after which the entry is evicted.
	Deadline time.Time

	// Generation is unique per write. A refresh of the same key gets a new,
	// strictly larger generation, so a timer armed for an older write can
	// never delete this one.
	Generation uint64

	// CreatedAt is the time of the write that produced this generation.
	CreatedAt time.Time
}

