// Package metrics provides a Prometheus implementation of types.Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/krisalay/expiring-map/types"
)

var _ types.Metrics = (*Prometheus)(nil)

// Prometheus holds the counters and gauges for one map.
type Prometheus struct {
	Hits      prometheus.Counter
	Misses    prometheus.Counter
	Writes    prometheus.Counter
	Removals  prometheus.Counter
	Expired   prometheus.Counter
	StaleFire prometheus.Counter
	Entries   prometheus.Gauge
}

// NewPrometheus creates the metrics and registers them on reg.
// A nil reg creates unregistered collectors.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	f := promauto.With(reg)

	return &Prometheus{
		Hits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hits_total",
			Help:      "Total number of reads that found a live key",
		}),
		Misses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "misses_total",
			Help:      "Total number of reads that found no key",
		}),
		Writes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Total number of inserts and refreshes",
		}),
		Removals: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removals_total",
			Help:      "Total number of keys removed by callers",
		}),
		Expired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expirations_total",
			Help:      "Total number of keys evicted after their TTL elapsed",
		}),
		StaleFire: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_timers_total",
			Help:      "Total number of due timers discarded because the key was refreshed or removed",
		}),
		Entries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Current number of live entries",
		}),
	}
}

func (m *Prometheus) Hit()       { m.Hits.Inc() }
func (m *Prometheus) Miss()      { m.Misses.Inc() }
func (m *Prometheus) Write()     { m.Writes.Inc() }
func (m *Prometheus) Remove()    { m.Removals.Inc() }
func (m *Prometheus) Expire()    { m.Expired.Inc() }
func (m *Prometheus) Stale()     { m.StaleFire.Inc() }
func (m *Prometheus) Size(n int) { m.Entries.Set(float64(n)) }
