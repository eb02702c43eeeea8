package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	checkPass       = "pass"
	checkFail       = "fail"

	readyTimeout = 5 * time.Second
)

// HealthCheck 一个就绪依赖（存储、数据库、Redis）
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

type ServiceHealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// VersionInfo 由 main 在构建时注入
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	Provider  string `json:"provider,omitempty"`
}

// =============================================================================
// 🏥 HealthHandler
// =============================================================================

// HealthHandler /health 与 /healthz 只说明进程存活；/ready 并发执行全部检查
type HealthHandler struct {
	logger *zap.Logger

	mu     sync.RWMutex
	checks []HealthCheck
}

func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{logger: logger}
}

// RegisterCheck 可与 /ready 请求并发调用
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	h.checks = append(h.checks, check)
	h.mu.Unlock()
}

// HandleHealth GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ServiceHealthResponse{Status: statusHealthy, Timestamp: time.Now()})
}

// HandleHealthz GET /healthz，k8s liveness
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	h.HandleHealth(w, r)
}

// HandleReady GET /ready，任一检查失败返回 503
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, healthy := h.Run(ctx)
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, status)
}

// HandleVersion GET /version
func (h *HealthHandler) HandleVersion(info VersionInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, info)
	}
}

// Run 执行全部检查并汇总，启动时的依赖自检也用它
func (h *HealthHandler) Run(ctx context.Context) (ServiceHealthResponse, bool) {
	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	resp := ServiceHealthResponse{
		Status: statusHealthy,
		Checks: make(map[string]CheckResult, len(checks)),
	}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, check := range checks {
		g.Go(func() error {
			res := h.runOne(ctx, check)
			mu.Lock()
			resp.Checks[check.Name()] = res
			if res.Status == checkFail {
				resp.Status = statusUnhealthy
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resp.Timestamp = time.Now()
	return resp, resp.Status == statusHealthy
}

func (h *HealthHandler) runOne(ctx context.Context, check HealthCheck) CheckResult {
	start := time.Now()
	err := check.Check(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.logger.Warn("health check failed",
			zap.String("check", check.Name()),
			zap.Duration("latency", elapsed),
			zap.Error(err),
		)
		return CheckResult{Status: checkFail, Message: err.Error(), Latency: elapsed.String()}
	}
	return CheckResult{Status: checkPass, Latency: elapsed.String()}
}

// PingCheck 把一个 ping 函数包装成 HealthCheck
type PingCheck struct {
	name string
	ping func(ctx context.Context) error
}

func NewPingCheck(name string, ping func(ctx context.Context) error) *PingCheck {
	return &PingCheck{name: name, ping: ping}
}

func (c *PingCheck) Name() string                    { return c.name }
func (c *PingCheck) Check(ctx context.Context) error { return c.ping(ctx) }
