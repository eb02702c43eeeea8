package main

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/agentchat/api/handlers"
	"github.com/BaSui01/agentchat/internal/metrics"
	"github.com/BaSui01/agentchat/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// =============================================================================
// 🔗 中间件链
// =============================================================================

// Middleware 包装一个 http.Handler
type Middleware func(http.Handler) http.Handler

// Chain 第一个中间件位于最外层
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

type requestIDKey struct{}

// RequestIDFromContext 没有请求 ID 时返回空串
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID 沿用客户端的 X-Request-ID（≤128 字节），否则生成 req-<32 hex>
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(handlers.RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = newRequestID()
			}
			w.Header().Set(handlers.RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

func newRequestID() string {
	return "req-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Recovery 捕获 panic，写 500 INTERNAL_ERROR 信封
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.Stack("stack"),
				)
				handlers.WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, "internal error", logger)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger 5xx 记为 warn，其余 info
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			level := zapcore.InfoLevel
			if rw.StatusCode >= http.StatusInternalServerError {
				level = zapcore.WarnLevel
			}
			logger.Log(level, "request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.StatusCode),
				zap.Int64("bytes", rw.Bytes),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			)
		})
	}
}

// =============================================================================
// 📊 指标与追踪
// =============================================================================

// MetricsMiddleware 按归一化路由记录请求数、耗时与报文大小
func MetricsMiddleware(collector *metrics.Collector) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			collector.RecordHTTPRequest(r.Method, normalizePath(r.URL.Path), rw.StatusCode,
				time.Since(start), max(r.ContentLength, 0), rw.Bytes)
		})
	}
}

// OTelTracing 每个请求一个 server span，沿用请求头中的 trace context
func OTelTracing() Middleware {
	tracer := otel.Tracer("agentchat/http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			route := normalizePath(r.URL.Path)

			ctx, span := tracer.Start(ctx, r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRoute(route),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()
			if id := RequestIDFromContext(ctx); id != "" {
				span.SetAttributes(attribute.String("http.request_id", id))
			}

			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			span.SetAttributes(semconv.HTTPResponseStatusCode(rw.StatusCode))
			if rw.StatusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rw.StatusCode))
			}
		})
	}
}

// 形如 UUID、8 位以上 hex 或纯数字的路径段视为 ID
var idSegment = regexp.MustCompile(`^[0-9a-fA-F]{8,}(-[0-9a-fA-F]{4,}){0,4}$|^[0-9]+$`)

const artifactsPrefix = "/api/v1/artifacts/"

var staticRoutes = map[string]bool{
	"/health": true, "/healthz": true, "/ready": true, "/readyz": true,
	"/version": true, "/metrics": true,
	"/api/v1/agents": true, "/api/v1/sessions": true,
}

// normalizePath 把动态段折叠成 :id，产物路径整体折叠成 :path，控制标签基数
//
//	/api/v1/sessions/<uuid>/messages/text -> /api/v1/sessions/:id/messages/text
func normalizePath(p string) string {
	if staticRoutes[p] {
		return p
	}
	if strings.HasPrefix(p, artifactsPrefix) {
		return artifactsPrefix + ":path"
	}
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if s != "" && idSegment.MatchString(s) {
			segs[i] = ":id"
		}
	}
	return strings.Join(segs, "/")
}

// =============================================================================
// 🛡️ 限流与安全头
// =============================================================================

// ipLimiter 每个客户端 IP 一个令牌桶
type ipLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	*rate.Limiter
	lastSeen time.Time
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.AllowN(now, 1)
}

// sweep 删除 idle 之前未出现的 IP
func (l *ipLimiter) sweep(now time.Time, idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(l.buckets, ip)
		}
	}
}

// RateLimiter 按客户端 IP 限流，超限返回 429 RATE_LIMITED；ctx 结束时停止清理协程
func RateLimiter(ctx context.Context, rps float64, burst int, logger *zap.Logger) Middleware {
	l := &ipLimiter{rps: rate.Limit(rps), burst: max(burst, 1), buckets: make(map[string]*bucket)}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.sweep(now, 3*time.Minute)
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !l.allow(ip, time.Now()) {
				handlers.WriteErrorMessage(w, http.StatusTooManyRequests, types.ErrRateLimited, "too many requests", logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS 只回显白名单内的 Origin；白名单为空时拒绝跨域预检
func CORS(allowedOrigins []string) Middleware {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	corsHeaders := map[string]string{
		"Access-Control-Allow-Methods":  "GET, POST, PUT, DELETE, OPTIONS",
		"Access-Control-Allow-Headers":  "Content-Type, " + handlers.RequestIDHeader,
		"Access-Control-Expose-Headers": handlers.RequestIDHeader,
		"Access-Control-Max-Age":        "86400",
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			preflight := r.Method == http.MethodOptions && origin != ""

			switch {
			case len(allowed) == 0 && preflight:
				w.WriteHeader(http.StatusForbidden)
				return
			case len(allowed) == 0:
				next.ServeHTTP(w, r)
				return
			case allowed[origin]:
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				for k, v := range corsHeaders {
					h.Set(k, v)
				}
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// media-src 允许同源页面播放产物音频
var securityHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Content-Security-Policy", "default-src 'self'; media-src 'self'"},
}

// SecurityHeaders 为每个响应设置固定的安全头
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, kv := range securityHeaders {
				w.Header().Set(kv[0], kv[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}
