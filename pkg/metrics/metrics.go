// Package metrics holds the two process-wide flush counters the MemTable
// updates. Their names are fixed for compatibility with downstream
// dashboards and must not change.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// FlushTotal is incremented by 1 per successful flush.
	FlushTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memtable_flush_total",
		Help: "Total number of successful MemTable flushes.",
	})

	// FlushDurationMicros is incremented by the elapsed flush time, in
	// microseconds, per successful flush.
	FlushDurationMicros = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memtable_flush_duration_us",
		Help: "Cumulative MemTable flush duration, in microseconds.",
	})
)

func init() {
	prometheus.MustRegister(FlushTotal, FlushDurationMicros)
}
