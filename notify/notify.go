package notify

import "time"

/*
This file defines how the map tells the outside world that a key expired.

The expiration worker finds expired keys while it holds the map lock. Running
user code there would let a slow listener stall every other caller, so events
are handed to a Notifier, which must return immediately.
*/

// Event describes one eviction.
type Event[K comparable, V any] struct {
	Key       K
	Value     V
	ExpiredAt time.Time
}

// Listener receives eviction events.
type Listener[K comparable, V any] func(key K, value V)

/*
Notifier is the contract between the map and event delivery.
The map does not care how delivery happens. It calls Notify under its lock and
Close once on shutdown.
*/
type Notifier[K comparable, V any] interface {

	// Notify must not block and must not call back into the map.
	Notify(Event[K, V])

	// Close is called when the map is shutting down.
	Close()
}

// Noop discards every event. It is used when no listener is configured.
type Noop[K comparable, V any] struct{}

func (Noop[K, V]) Notify(Event[K, V]) {}
func (Noop[K, V]) Close()             {}
