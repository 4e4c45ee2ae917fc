// Package prometheus exposes sessionkit counters as a prometheus.Collector.
//
// Register a [Collector] with any registry, or mount [Collector.Handler]
// for a self-contained /metrics endpoint. Counter names are prefixed
// sessionkit_ and end in _total; the single histogram is
// sessionkit_authenticate_latency_seconds.
package prometheus
