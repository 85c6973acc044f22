// Package otel bridges accountgate metrics into an OpenTelemetry meter through
// observable instruments read from engine snapshots at collection time.
//
// Histograms are exposed as cumulative per-bucket gauges plus _count and _sum
// gauges, using the same names and bounds as the Prometheus exporter.
package otel
