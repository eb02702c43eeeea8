// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

var (
	latencyBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}
	turnBuckets    = append(append([]float64(nil), latencyBuckets...), 120)
	sizeBuckets    = prometheus.ExponentialBuckets(100, 10, 8)
)

// Collector 持有独立 registry，/metrics 只暴露本服务与运行时指标
type Collector struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpRequestSize  *prometheus.HistogramVec
	httpResponseSize *prometheus.HistogramVec

	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec

	turns        *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec

	dbOpen *prometheus.GaugeVec
	dbIdle *prometheus.GaugeVec
}

// NewCollector 创建收集器并注册 Go 运行时与进程指标
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	}
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return f.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}

	c := &Collector{
		registry: reg,

		httpRequests:     counter("http_requests_total", "HTTP requests by route and status class", "method", "path", "status"),
		httpDuration:     histogram("http_request_duration_seconds", "HTTP request latency", prometheus.DefBuckets, "method", "path"),
		httpRequestSize:  histogram("http_request_size_bytes", "HTTP request body size", sizeBuckets, "method", "path"),
		httpResponseSize: histogram("http_response_size_bytes", "HTTP response body size", sizeBuckets, "method", "path"),

		// operation: complete | transcribe | synthesize
		providerCalls:    counter("provider_calls_total", "Provider calls by operation and status", "provider", "operation", "status"),
		providerDuration: histogram("provider_call_duration_seconds", "Provider call latency", latencyBuckets, "provider", "operation"),

		turns:        counter("turns_total", "Conversation turns by mode and outcome", "mode", "outcome"),
		turnDuration: histogram("turn_duration_seconds", "Turn latency including the wait for the session lock", turnBuckets, "mode"),

		dbOpen: gauge("db_connections_open", "Open database connections", "database"),
		dbIdle: gauge("db_connections_idle", "Idle database connections", "database"),
	}

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// Handler 暴露本收集器 registry 的 Prometheus 文本格式
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordHTTPRequest 记录 HTTP 请求；path 应为归一化后的路由
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequests.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordProviderCall 实现 llm.CallRecorder
func (c *Collector) RecordProviderCall(provider, operation, status string, duration time.Duration) {
	c.providerCalls.WithLabelValues(provider, operation, status).Inc()
	c.providerDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordTurn 实现 orchestrator.TurnRecorder
func (c *Collector) RecordTurn(mode, outcome string, duration time.Duration) {
	c.turns.WithLabelValues(mode, outcome).Inc()
	c.turnDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordDBConnections 记录连接池快照
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbOpen.WithLabelValues(database).Set(float64(open))
	c.dbIdle.WithLabelValues(database).Set(float64(idle))
}

// statusClass 200 -> "2xx"；1xx 及非法值为 "unknown"
func statusClass(code int) string {
	if code < 200 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
