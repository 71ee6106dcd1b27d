package expiringmap

import (
	"log"
	"time"

	"github.com/krisalay/expiring-map/types"
)

/*
Config controls a Map.

Only TTL is required. Every other field has a usable zero value:
  - Metrics nil means no metrics
  - Logger nil means log.Default()
  - OnExpire nil means evictions are not reported
  - EventBuffer <= 0 means 1024 queued eviction events
*/
type Config[K comparable, V comparable] struct {

	// TTL is how long every write lives. It is the same for every key.
	TTL time.Duration

	// Metrics must be safe for concurrent use; hooks run under the map lock.
	Metrics types.Metrics

	Logger *log.Logger

	// OnExpire is called for every key evicted by its TTL, on a separate
	// goroutine and never under the map lock. It is not called for keys
	// removed by a caller.
	OnExpire func(key K, value V)

	// EventBuffer is the number of eviction events that may queue for
	// OnExpire before new ones are dropped.
	EventBuffer int
}
