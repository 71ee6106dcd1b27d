package types

// Stats is a point-in-time view of a map.
type Stats struct {
	Entries     int    `json:"entries"`
	ArmedTimers int    `json:"armed_timers"`
	Expired     uint64 `json:"expired"`
	StaleTimers uint64 `json:"stale_timers"`
}
