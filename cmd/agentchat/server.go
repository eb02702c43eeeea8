package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentchat/agent/artifacts"
	"github.com/BaSui01/agentchat/agent/orchestrator"
	"github.com/BaSui01/agentchat/agent/persistence"
	"github.com/BaSui01/agentchat/agent/voice"
	"github.com/BaSui01/agentchat/api/handlers"
	"github.com/BaSui01/agentchat/config"
	"github.com/BaSui01/agentchat/internal/metrics"
	"github.com/BaSui01/agentchat/internal/server"
	"github.com/BaSui01/agentchat/internal/telemetry"
	llmfactory "github.com/BaSui01/agentchat/llm/factory"
)

// dbStatsInterval 连接池指标的采样间隔
const dbStatsInterval = 15 * time.Second

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 AgentChat 的主服务器，持有全部长生命周期组件
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	otel     *telemetry.Providers
	backends persistence.Backends
	repo     persistence.Repository

	metricsCollector *metrics.Collector
	healthHandler    *handlers.HealthHandler

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 后台任务（限流清理、连接池采样）
	cancel context.CancelFunc
	wg     sync.WaitGroup

	shutdownOnce sync.Once
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 装配所有组件并启动监听。失败时调用方应执行 Shutdown 释放已打开的资源。
func (s *Server) Start(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// 1. 遥测（失败只告警）
	otelProviders, err := telemetry.Init(ctx, s.cfg.Telemetry, s.logger, telemetry.WithServiceVersion(Version))
	if err != nil {
		s.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	s.otel = otelProviders

	// 2. 指标收集器
	s.metricsCollector = metrics.NewCollector("agentchat", s.logger)

	// 3. 存储
	if err := s.initStore(ctx); err != nil {
		return fmt.Errorf("failed to init store: %w", err)
	}

	// 4. Handlers
	mux := http.NewServeMux()
	if err := s.initHandlers(ctx, mux); err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	// 启动前先跑一遍依赖检查，不通过只告警，/ready 会继续反映真实状态
	if status, healthy := s.healthHandler.Run(ctx); !healthy {
		s.logger.Warn("dependency check failed at startup", zap.Any("checks", status.Checks))
	}

	// 5. HTTP 服务器
	if err := s.startHTTPServer(bgCtx, mux); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 6. Metrics 服务器（metrics_port=0 时挂在主端口上）
	if s.cfg.Server.MetricsPort > 0 {
		if err := s.startMetricsServer(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	// 7. 连接池采样
	if s.backends.DB != nil {
		s.wg.Add(1)
		go s.recordDBStats(bgCtx)
	}

	s.logger.Info("All servers started",
		zap.String("http_addr", s.httpManager.Addr()),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("store", s.cfg.Store.Type),
		zap.String("provider", s.cfg.LLM.Provider),
	)
	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

func (s *Server) initStore(ctx context.Context) error {
	backends, err := openBackends(ctx, s.cfg, s.logger)
	if err != nil {
		return err
	}
	s.backends = backends

	repo, err := persistence.NewRepository(persistence.StoreConfig{
		Type:      persistence.StoreType(s.cfg.Store.Type),
		KeyPrefix: s.cfg.Store.KeyPrefix,
	}, backends, s.logger)
	if err != nil {
		return err
	}
	s.repo = repo
	return nil
}

// initHandlers 构建 Provider、语音管线、编排器，并注册全部路由
func (s *Server) initHandlers(ctx context.Context, mux *http.ServeMux) error {
	provider, err := llmfactory.NewProviderFromConfig(ctx, providerConfig(s.cfg.LLM), s.metricsCollector, s.logger)
	if err != nil {
		return fmt.Errorf("create llm provider: %w", err)
	}

	store, err := artifacts.NewStore(ctx, artifactsConfig(s.cfg.Artifacts), s.logger)
	if err != nil {
		return fmt.Errorf("create artifact store: %w", err)
	}
	artifactManager := artifacts.NewManager(artifacts.ManagerConfig{MaxSize: s.cfg.Artifacts.MaxBytes}, store, s.logger)

	pipeline := voice.NewPipeline(voice.VoiceConfig{
		MaxAudioBytes: s.cfg.Server.MaxUploadBytes,
		KeepInbound:   s.cfg.Artifacts.KeepInbound,
	}, provider, artifactManager, s.logger)

	orch := orchestrator.New(s.repo, provider, pipeline, orchestrator.Config{
		TurnTimeout:  s.cfg.LLM.TurnTimeout,
		StoreTimeout: s.cfg.Store.Timeout,
	}, s.logger).WithRecorder(s.metricsCollector)

	// 健康检查
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewPingCheck("store", s.repo.Ping))
	if s.backends.DB != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("database", s.backends.DB.Ping))
	}
	if client := s.backends.Redis; client != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
	}

	handlers.Routes{
		Health: s.healthHandler,
		Version: handlers.VersionInfo{
			Version:   Version,
			BuildTime: BuildTime,
			GitCommit: GitCommit,
			Provider:  provider.Name(),
		},
		Agents:    handlers.NewAgentHandler(s.repo, s.logger),
		Sessions:  handlers.NewSessionHandler(s.repo, s.logger),
		Chat:      handlers.NewChatHandler(orch, s.repo, s.cfg.Server.MaxUploadBytes, s.logger),
		Artifacts: handlers.NewArtifactHandler(artifactManager, s.logger),
	}.Register(mux)

	if s.cfg.Server.MetricsPort == 0 {
		mux.Handle("GET /metrics", s.metricsCollector.Handler())
	}

	s.logger.Info("Handlers initialized", zap.String("provider", provider.Name()))
	return nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

func (s *Server) startHTTPServer(bgCtx context.Context, mux *http.ServeMux) error {
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		OTelTracing(),
		MetricsMiddleware(s.metricsCollector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		middlewares = append(middlewares,
			RateLimiter(bgCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger))
	}
	handler := Chain(mux, middlewares...)

	serverConfig := server.Config{
		Name:            "api",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
		TLSCertFile:     s.cfg.Server.TLSCertFile,
		TLSKeyFile:      s.cfg.Server.TLSKeyFile,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	return s.httpManager.Start()
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metricsCollector.Handler())

	serverConfig := server.Config{
		Name:            "metrics",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.ReadTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	return s.metricsManager.Start()
}

func (s *Server) recordDBStats(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(dbStatsInterval)
	defer ticker.Stop()

	for {
		stats := s.backends.DB.Stats()
		s.metricsCollector.RecordDBConnections(s.backends.DB.Driver(), stats.OpenConnections, stats.Idle)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 阻塞到收到信号或 HTTP 服务器异常退出，然后优雅关闭
func (s *Server) WaitForShutdown(ctx context.Context) error {
	var err error
	if s.httpManager != nil {
		err = s.httpManager.WaitForShutdown(ctx)
	}
	s.Shutdown()
	return err
}

// Shutdown 按依赖的逆序关闭：监听、后台任务、存储、遥测。可重复调用。
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(s.shutdown)
}

func (s *Server) shutdown() {
	s.logger.Info("Starting graceful shutdown...")
	ctx := context.Background()

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	// Repository 接管 backends 的连接；仓库未建成时直接关闭连接
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			s.logger.Error("store close error", zap.Error(err))
		}
	} else {
		if s.backends.DB != nil {
			if err := s.backends.DB.Close(); err != nil {
				s.logger.Error("database close error", zap.Error(err))
			}
		}
		if s.backends.Redis != nil {
			if err := s.backends.Redis.Close(); err != nil {
				s.logger.Error("redis close error", zap.Error(err))
			}
		}
	}

	if s.otel != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.otel.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
