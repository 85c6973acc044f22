// Package metrics provides lock-free counters and latency histograms for the
// account engine.
//
// Counters sit in cache-line-padded uint64 slots updated with
// [sync/atomic.AddUint64]. Histograms use 8 fixed buckets (<=5ms ... +Inf) and
// also accumulate the observed sum. The write path does not allocate.
//
// Export (Prometheus text, OpenTelemetry) lives under metrics/export and reads
// [Snapshot] values.
package metrics
