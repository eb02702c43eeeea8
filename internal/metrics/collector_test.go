package metrics

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCollector() *Collector {
	return NewCollector("agentchat_test", zap.NewNop())
}

func TestNewCollector_IndependentRegistries(t *testing.T) {
	// 同一 namespace 创建两次不会重复注册
	a := newTestCollector()
	b := newTestCollector()

	a.RecordTurn("text", "persisted", time.Second)
	assert.Equal(t, float64(1), testutil.ToFloat64(a.turns.WithLabelValues("text", "persisted")))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.turns.WithLabelValues("text", "persisted")))
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c := newTestCollector()

	c.RecordHTTPRequest("GET", "/api/v1/agents", 200, 100*time.Millisecond, 1024, 2048)
	c.RecordHTTPRequest("GET", "/api/v1/agents", 201, 50*time.Millisecond, 512, 1024)
	c.RecordHTTPRequest("GET", "/api/v1/agents", 404, 5*time.Millisecond, 0, 64)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/v1/agents", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/v1/agents", "4xx")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.httpDuration))
}

func TestCollector_RecordProviderCall(t *testing.T) {
	c := newTestCollector()

	c.RecordProviderCall("openai", "complete", "ok", 500*time.Millisecond)
	c.RecordProviderCall("openai", "complete", "PROVIDER_RATE_LIMITED", 20*time.Millisecond)
	c.RecordProviderCall("openai", "synthesize", "ok", time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.providerCalls.WithLabelValues("openai", "complete", "ok")))
	assert.Equal(t, 3, testutil.CollectAndCount(c.providerCalls))
	assert.Equal(t, 2, testutil.CollectAndCount(c.providerDuration))
}

func TestCollector_RecordTurnAndDB(t *testing.T) {
	c := newTestCollector()

	c.RecordTurn("voice", "degraded", 3*time.Second)
	c.RecordDBConnections("postgres", 10, 5)
	c.RecordDBConnections("postgres", 8, 6)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.turns.WithLabelValues("voice", "degraded")))
	assert.Equal(t, float64(8), testutil.ToFloat64(c.dbOpen.WithLabelValues("postgres")))
	assert.Equal(t, float64(6), testutil.ToFloat64(c.dbIdle.WithLabelValues("postgres")))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	c := newTestCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordHTTPRequest("POST", "/api/v1/sessions/:id/messages", 200, 100*time.Millisecond, 1024, 2048)
			c.RecordProviderCall("mock", "complete", "ok", 500*time.Millisecond)
			c.RecordTurn("text", "persisted", time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(10), testutil.ToFloat64(c.turns.WithLabelValues("text", "persisted")))
	assert.Equal(t, float64(10), testutil.ToFloat64(c.providerCalls.WithLabelValues("mock", "complete", "ok")))
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector()
	c.RecordTurn("text", "persisted", time.Second)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `agentchat_test_turns_total{mode="text",outcome="persisted"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 302: "3xx", 413: "4xx", 503: "5xx", 100: "unknown", 700: "unknown"}
	for code, want := range tests {
		assert.Equal(t, want, statusClass(code), code)
	}
}
