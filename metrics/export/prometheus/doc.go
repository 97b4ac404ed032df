// Package prometheus renders goRecover engine metrics in the Prometheus text
// exposition format.
//
// Counters are named gorecover_*_total. The only histogram is
// gorecover_recovery_latency_seconds, present when latency histograms are
// enabled.
//
// # What this package must NOT do
//
//   - Register anything in a global registry. Callers mount [Exporter.Handler].
//   - Mutate engine state.
package prometheus
