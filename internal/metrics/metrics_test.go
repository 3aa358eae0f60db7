package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectorの全メトリクスが/metricsに出力されることを検証
func TestCollector_ExposesAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.RecordUpstreamStatus(200)
	c.RecordUpstreamStatus(429)
	c.RecordUpstreamLatency(100 * time.Millisecond)
	c.RecordRateLimited()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	body := w.Body.String()
	for _, metric := range []string{
		"llamadash_cache_hits_total 1",
		"llamadash_cache_misses_total 1",
		`llamadash_upstream_responses_total{status_code="200"} 1`,
		`llamadash_upstream_responses_total{status_code="429"} 1`,
		"llamadash_rate_limited_total 1",
		"llamadash_upstream_latency_seconds_count 1",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output should contain %q", metric)
		}
	}
}

// 重複登録でpanicすることを検証（MustRegisterの契約）
func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewCollector(reg)
}
