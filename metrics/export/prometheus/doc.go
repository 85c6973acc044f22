// Package prometheus renders accountgate metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts an [accountgate.Engine] and exposes an
// [http.Handler]. Counter names are prefixed accountgate_ and end in _total;
// the latency histograms are accountgate_login_latency_seconds and
// accountgate_list_latency_seconds.
//
// Nothing is registered in a global registry. Callers mount the Handler.
package prometheus
