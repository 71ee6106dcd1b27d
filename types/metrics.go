package types

// This file defines how the map reports what it is doing.

/*
Metrics is an interface that defines what the map wants to measure.
Each method represents an event in the entry lifecycle. The map calls these
methods while it holds its lock, so implementations must be fast and must not
call back into the map.
*/
type Metrics interface {

	// Hit is called when a read finds a live key.
	Hit()

	// Miss is called when a read does NOT find the key.
	Miss()

	// Write is called for every successful insert or refresh.
	Write()

	// Remove is called when a key is removed by a caller (remove, clear, compute deleting).
	Remove()

	// Expire is called when the background worker evicts a key because its TTL passed.
	Expire()

	// Stale is called when a due timer no longer matches the live generation
	// and the eviction is discarded.
	Stale()

	// Size reports the number of entries after a structural change.
	Size(n int)
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

It lets the map call metric hooks unconditionally instead of checking for nil
on every operation.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()     {}
func (NoopMetrics) Miss()    {}
func (NoopMetrics) Write()   {}
func (NoopMetrics) Remove()  {}
func (NoopMetrics) Expire()  {}
func (NoopMetrics) Stale()   {}
func (NoopMetrics) Size(int) {}
