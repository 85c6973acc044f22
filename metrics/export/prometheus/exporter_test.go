package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/accountgate"
)

type fakeSource struct {
	snapshot accountgate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() accountgate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: accountgate.MetricsSnapshot{
			Counters:   map[accountgate.MetricID]uint64{},
			Histograms: map[accountgate.MetricID]accountgate.HistogramSnapshot{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistograms(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: accountgate.MetricsSnapshot{
			Counters: map[accountgate.MetricID]uint64{
				accountgate.MetricLoginSuccess:     7,
				accountgate.MetricLoginRateLimited: 3,
			},
			Histograms: map[accountgate.MetricID]accountgate.HistogramSnapshot{
				accountgate.MetricLoginLatency: {
					Buckets: []uint64{1, 2, 3, 4, 5, 6, 7, 8},
					Sum:     1500 * time.Millisecond,
				},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"accountgate_login_success_total 7",
		"accountgate_login_rate_limited_total 3",
		"accountgate_login_latency_seconds_bucket{le=\"0.005\"} 1",
		"accountgate_login_latency_seconds_bucket{le=\"+Inf\"} 36",
		"accountgate_login_latency_seconds_sum 1.5",
		"accountgate_login_latency_seconds_count 36",
		"accountgate_list_latency_seconds_count 0",
		"accountgate_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: accountgate.MetricsSnapshot{
			Counters: map[accountgate.MetricID]uint64{accountgate.MetricLoginSuccess: 1},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: accountgate.MetricsSnapshot{
			Counters: map[accountgate.MetricID]uint64{
				accountgate.MetricLoginSuccess:     1000,
				accountgate.MetricLoginFailure:     40,
				accountgate.MetricLoginRateLimited: 8,
				accountgate.MetricListRequest:      500,
			},
			Histograms: map[accountgate.MetricID]accountgate.HistogramSnapshot{
				accountgate.MetricLoginLatency: {Buckets: []uint64{10, 20, 30, 40, 50, 60, 70, 80}},
				accountgate.MetricListLatency:  {Buckets: []uint64{80, 70, 0, 0, 0, 0, 0, 0}},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
