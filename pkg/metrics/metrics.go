// Package metrics provides the centralized Prometheus metrics registry for
// the guild status pipeline. All metrics are defined in their respective
// packages (raiderio, ratelimit, cache, scheduler) to maintain modularity
// and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the pipeline.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Admission Metrics (pkg/ratelimit):
//   - guildstatus_admissions_total (Counter): Requests admitted through the token bucket
//   - guildstatus_admission_wait_seconds (Histogram): Time spent waiting for a rate token
//   - guildstatus_slots_in_use (Gauge): Concurrency slots currently held
//   - guildstatus_slot_wait_seconds (Histogram): Time spent waiting for a free slot
//
// Request Metrics (pkg/raiderio):
//   - guildstatus_upstream_requests_total{status} (Counter): Upstream requests by HTTP status
//   - guildstatus_upstream_request_duration_seconds (Histogram): Upstream request duration
//   - guildstatus_upstream_errors_total{class} (Counter): Errors by class (client, server, throttle, network, payload)
//
// Fetch Metrics (pkg/raiderio):
//   - guildstatus_fetch_outcomes_total{status} (Counter): Terminal unit outcomes
//   - guildstatus_fetch_retries_total{error_class} (Counter): Retry attempts by error class
//   - guildstatus_fetch_retry_backoff_seconds (Histogram): Backoff duration before retries
//   - guildstatus_fetch_retry_exhausted_total (Counter): Units that exhausted the retry limit
//
// Cache Metrics (pkg/cache):
//   - guildstatus_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - guildstatus_cache_misses_total (Counter): Cache misses
//   - guildstatus_cache_errors_total{operation} (Counter): Cache operation errors
//
// Run Metrics (pkg/scheduler):
//   - guildstatus_runs_total{classification} (Counter): Pipeline runs by classification
//   - guildstatus_run_duration_seconds (Histogram): Pipeline run duration
//   - guildstatus_run_guilds (Histogram): Guilds resolved per run
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(guildstatus_cache_hits_total[5m])) /
//   (sum(rate(guildstatus_cache_hits_total[5m])) + sum(rate(guildstatus_cache_misses_total[5m])))
//
//   # Fetch Failure Rate
//   sum(rate(guildstatus_fetch_outcomes_total{status!="success"}[5m])) /
//   sum(rate(guildstatus_fetch_outcomes_total[5m]))
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(guildstatus_upstream_request_duration_seconds_bucket[5m]))
//
//   # Admission Pressure
//   histogram_quantile(0.95, rate(guildstatus_admission_wait_seconds_bucket[5m]))
