// =============================================================================
// AgentChat 主入口
// =============================================================================
// 人设对话服务（文本 + 语音）。子命令：
//
//	agentchat serve [--config config.yaml]
//	agentchat migrate <up|down|steps|status|version|info|force>
//	agentchat health [--addr http://localhost:8080] [--ready]
//	agentchat version
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/agentchat/config"
)

// 构建时通过 -ldflags 注入
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type command struct {
	summary string
	run     func(args []string)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"serve":   {"Start the HTTP API server", runServe},
		"migrate": {"Database migration commands (see `agentchat migrate help`)", runMigrate},
		"health":  {"Probe a running server", runHealthCheck},
		"version": {"Show build information", func([]string) { printVersion(os.Stdout) }},
		"help":    {"Show this help message", func([]string) { printUsage(os.Stdout) }},
	}
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	name := os.Args[1]
	if name == "-h" || name == "--help" {
		name = "help"
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage(os.Stderr)
		os.Exit(1)
	}
	cmd.run(os.Args[2:])
}

// =============================================================================
// 🖥️ serve
// =============================================================================

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting AgentChat",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("store", cfg.Store.Type),
	)

	ctx := context.Background()
	srv := NewServer(cfg, logger)
	if err := srv.Start(ctx); err != nil {
		srv.Shutdown()
		logger.Fatal("Failed to start server", zap.Error(err))
	}
	if err := srv.WaitForShutdown(ctx); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
	logger.Info("AgentChat stopped")
}

// loadConfig 默认值 → YAML → 环境变量
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	return loader.Load()
}

// =============================================================================
// 🏥 health
// =============================================================================

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server base URL")
	ready := fs.Bool("ready", false, "Probe /ready (store, database, redis) instead of /health")
	_ = fs.Parse(args)

	path := "/health"
	if *ready {
		path = "/ready"
	}
	if err := probeHealth(&http.Client{Timeout: 5 * time.Second}, *addr+path, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
}

// probeHealth 把响应体原样写到 out，非 200 返回错误
func probeHealth(client *http.Client, url string, out io.Writer) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(out, io.LimitReader(resp.Body, 64<<10))
	fmt.Fprintln(out)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// =============================================================================
// 📋 version / help
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "AgentChat %s\n  Build Time: %s\n  Git Commit: %s\n", Version, BuildTime, GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, "AgentChat - persona chat over text and voice\n\nUsage:\n  agentchat <command> [options]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].summary)
	}
	fmt.Fprint(w, `
Examples:
  agentchat serve --config /etc/agentchat/config.yaml
  agentchat migrate up
  agentchat health --addr http://localhost:8080 --ready
`)
}

// =============================================================================
// 🔧 日志
// =============================================================================

// initLogger 非法级别回退到 info；构建失败回退到 zap.NewProduction
func initLogger(cfg config.LogConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	console := cfg.Format == "console"

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       console,
		Encoding:          "json",
		EncoderConfig:     encoderConfig(console),
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}
	if console {
		zc.Encoding = "console"
	}

	logger, err := zc.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func encoderConfig(console bool) zapcore.EncoderConfig {
	if console {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return ec
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return ec
}
