package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/BaSui01/agentchat/internal/tlsutil"
	"go.uber.org/zap"
)

// Config 一个监听端口的参数
type Config struct {
	Name string // 日志中的 server 字段，如 api / metrics
	Addr string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration

	// 均非空时以 HTTPS 监听
	TLSCertFile string
	TLSKeyFile  string
}

// DefaultConfig WriteTimeout 覆盖一次完整的语音轮次
func DefaultConfig() Config {
	return Config{
		Name:            "api",
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    3 * time.Minute,
		IdleTimeout:     2 * time.Minute,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 30 * time.Second,
	}
}

func (c Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

type state uint8

const (
	stateIdle state = iota
	stateServing
	stateClosed
)

// =============================================================================
// 🌐 Manager
// =============================================================================

// Manager 持有一个 http.Server：非阻塞启动，异步错误经 Errors 上报，关闭只执行一次
type Manager struct {
	cfg    Config
	srv    *http.Server
	logger *zap.Logger
	failed chan error

	mu sync.Mutex
	st state
	ln net.Listener
}

func NewManager(handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "api"
	}

	srv := &http.Server{
		Addr:           cfg.Addr,
		Handler:        handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}
	if cfg.TLSEnabled() {
		srv.TLSConfig = tlsutil.DefaultTLSConfig()
	}

	return &Manager{
		cfg:    cfg,
		srv:    srv,
		logger: logger.With(zap.String("component", "http_server"), zap.String("server", cfg.Name)),
		failed: make(chan error, 1),
	}
}

// Start 绑定端口后立即返回，端口占用等错误同步返回
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.st {
	case stateClosed:
		return errors.New("server is closed")
	case stateServing:
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.cfg.Addr, err)
	}
	m.ln, m.st = ln, stateServing

	serve := func() error { return m.srv.Serve(ln) }
	scheme := "http"
	if m.cfg.TLSEnabled() {
		serve = func() error { return m.srv.ServeTLS(ln, m.cfg.TLSCertFile, m.cfg.TLSKeyFile) }
		scheme = "https"
	}
	m.logger.Info("server listening", zap.String("addr", ln.Addr().String()), zap.String("scheme", scheme))

	go func() {
		err := serve()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}
		m.logger.Error("server failed", zap.Error(err))
		select {
		case m.failed <- err:
		default:
		}
	}()
	return nil
}

// Shutdown 最多等待 ShutdownTimeout，重复调用直接返回 nil
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st == stateClosed {
		return nil
	}
	m.st = stateClosed

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		m.logger.Error("server shutdown failed", zap.Error(err))
		return err
	}
	m.logger.Info("server stopped")
	return nil
}

// WaitForShutdown 阻塞到 SIGINT/SIGTERM、ctx 结束或服务异常退出，然后关闭。
// 异常退出时返回该错误。
func (m *Manager) WaitForShutdown(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cause error
	select {
	case <-sigCtx.Done():
		if ctx.Err() != nil {
			m.logger.Info("context done, shutting down")
		} else {
			m.logger.Info("received shutdown signal")
		}
	case cause = <-m.failed:
		m.logger.Error("server exited unexpectedly", zap.Error(cause))
	}

	if err := m.Shutdown(context.Background()); err != nil && cause == nil {
		cause = err
	}
	return cause
}

func (m *Manager) Errors() <-chan error { return m.failed }

// Addr 启动后返回实际绑定的地址
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln != nil {
		return m.ln.Addr().String()
	}
	return m.cfg.Addr
}

// IsRunning 未关闭即为 true，包括尚未 Start 的状态
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st != stateClosed
}
