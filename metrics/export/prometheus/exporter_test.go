package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/saraha-app/sessionkit"
)

type fakeSource struct {
	snapshot sessionkit.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() sessionkit.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: sessionkit.MetricsSnapshot{
			Counters:   map[sessionkit.MetricID]uint64{},
			Histograms: map[sessionkit.MetricID][]uint64{},
		},
	})
	if n := testutil.CollectAndCount(c); n != 0 {
		t.Fatalf("expected no metrics for disabled engine, got %d", n)
	}
}

func TestCollectCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: sessionkit.MetricsSnapshot{
			Counters: map[sessionkit.MetricID]uint64{
				sessionkit.MetricLoginSuccess:         7,
				sessionkit.MetricRefreshReuseDetected: 1,
			},
			Histograms: map[sessionkit.MetricID][]uint64{
				sessionkit.MetricAuthenticateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	expected := `
# HELP sessionkit_login_success_total Successful logins.
# TYPE sessionkit_login_success_total counter
sessionkit_login_success_total 7
# HELP sessionkit_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE sessionkit_audit_dropped_total counter
sessionkit_audit_dropped_total 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"sessionkit_login_success_total", "sessionkit_audit_dropped_total")
	if err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	if !strings.Contains(out, `sessionkit_authenticate_latency_seconds_bucket{le="0.005"} 1`) {
		t.Fatalf("expected first histogram bucket, got:\n%s", out)
	}
	if !strings.Contains(out, `sessionkit_authenticate_latency_seconds_bucket{le="+Inf"} 36`) {
		t.Fatalf("expected +Inf cumulative bucket, got:\n%s", out)
	}
	if !strings.Contains(out, "sessionkit_refresh_reuse_detected_total 1") {
		t.Fatalf("expected reuse counter, got:\n%s", out)
	}
}
