package otel

import (
	"context"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/accountgate"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot accountgate.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() accountgate.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := accountgate.MetricsSnapshot{
		Counters:   make(map[accountgate.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[accountgate.MetricID]accountgate.HistogramSnapshot, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, h := range f.snapshot.Histograms {
		out.Histograms[k] = accountgate.HistogramSnapshot{
			Buckets: append([]uint64(nil), h.Buckets...),
			Sum:     h.Sum,
		}
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func findInt64(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("accountgate-test")

	src := &fakeSource{
		snapshot: accountgate.MetricsSnapshot{
			Counters: map[accountgate.MetricID]uint64{
				accountgate.MetricLoginSuccess:     3,
				accountgate.MetricLoginRateLimited: 2,
			},
			Histograms: map[accountgate.MetricID]accountgate.HistogramSnapshot{
				accountgate.MetricLoginLatency: {Buckets: []uint64{1, 1, 1, 1, 1, 1, 1, 1}, Sum: time.Second},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	checks := map[string]int64{
		"accountgate_login_success_total":                  3,
		"accountgate_login_rate_limited_total":             2,
		"accountgate_login_latency_seconds_count":          8,
		"accountgate_login_latency_seconds_bucket_le_0_01": 2,
		"accountgate_audit_dropped_total":                  1,
	}
	for name, want := range checks {
		got, ok := findInt64(rm, name)
		if !ok {
			t.Fatalf("metric %s not collected", name)
		}
		if got != want {
			t.Fatalf("metric %s: expected %d, got %d", name, want, got)
		}
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("accountgate-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("accountgate-test")

	src := &fakeSource{
		snapshot: accountgate.MetricsSnapshot{
			Counters: map[accountgate.MetricID]uint64{
				accountgate.MetricLoginSuccess: 1,
			},
			Histograms: map[accountgate.MetricID]accountgate.HistogramSnapshot{
				accountgate.MetricListLatency: {Buckets: []uint64{1, 0, 0, 0, 0, 0, 0, 0}},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[accountgate.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
