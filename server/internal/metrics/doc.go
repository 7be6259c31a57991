// Package metrics exposes store and connection counters in the Prometheus
// text exposition format. A Collector reads live state on every scrape; there
// is no background registry.
package metrics
