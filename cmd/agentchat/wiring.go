package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/agentchat/agent/artifacts"
	"github.com/BaSui01/agentchat/agent/persistence"
	"github.com/BaSui01/agentchat/config"
	"github.com/BaSui01/agentchat/internal/database"
	"github.com/BaSui01/agentchat/internal/migration"
	"github.com/BaSui01/agentchat/internal/tlsutil"
	llmfactory "github.com/BaSui01/agentchat/llm/factory"
	"github.com/BaSui01/agentchat/llm/providers"
	"github.com/BaSui01/agentchat/llm/retry"
)

// =============================================================================
// 🔌 配置 → 组件
// =============================================================================

// providerConfig 把扁平的 LLMConfig 叠加到所选变体的默认值上，空字段保留默认。
func providerConfig(cfg config.LLMConfig) llmfactory.Config {
	base := providers.BaseProviderConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}

	out := llmfactory.Config{
		Provider:        cfg.Provider,
		OpenAI:          providers.DefaultOpenAIConfig(),
		Groq:            providers.DefaultGroqConfig(),
		Gemini:          providers.DefaultGeminiConfig(),
		MaxPromptTokens: cfg.MaxPromptTokens,
		Retry:           retryPolicy(cfg),
	}

	switch strings.ToLower(cfg.Provider) {
	case "groq":
		overlayBase(&out.Groq.BaseProviderConfig, base)
		overlayChat(&out.Groq.Chat, cfg)
		overlaySpeech(&out.Groq.Speech, cfg)
	case "gemini":
		overlayBase(&out.Gemini.BaseProviderConfig, base)
		overlayChat(&out.Gemini.Chat, cfg)
		overlaySpeech(&out.Gemini.Speech, cfg)
	default:
		overlayBase(&out.OpenAI.BaseProviderConfig, base)
		overlayChat(&out.OpenAI.Chat, cfg)
		overlaySpeech(&out.OpenAI.Speech, cfg)
		out.OpenAI.Organization = cfg.Organization
	}
	return out
}

func overlayBase(dst *providers.BaseProviderConfig, src providers.BaseProviderConfig) {
	dst.APIKey = src.APIKey
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.Timeout > 0 {
		dst.Timeout = src.Timeout
	}
}

func overlayChat(dst *providers.ChatConfig, cfg config.LLMConfig) {
	if cfg.Model != "" {
		dst.Model = cfg.Model
	}
	if cfg.Temperature > 0 {
		dst.Temperature = float32(cfg.Temperature)
	}
	if cfg.MaxTokens > 0 {
		dst.MaxTokens = cfg.MaxTokens
	}
}

func overlaySpeech(dst *providers.SpeechConfig, cfg config.LLMConfig) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&dst.TranscriptionModel, cfg.TranscriptionModel)
	set(&dst.Language, cfg.Language)
	set(&dst.SpeechModel, cfg.SpeechModel)
	set(&dst.Voice, cfg.Voice)
	set(&dst.Format, cfg.SpeechFormat)
	set(&dst.Instructions, cfg.SpeechInstructions)
}

func retryPolicy(cfg config.LLMConfig) *retry.RetryPolicy {
	policy := retry.DefaultRetryPolicy()
	if cfg.MaxRetries >= 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryInitialDelay > 0 {
		policy.InitialDelay = cfg.RetryInitialDelay
	}
	if cfg.RetryMaxDelay > 0 {
		policy.MaxDelay = cfg.RetryMaxDelay
	}
	return policy
}

// artifactsConfig 产物后端配置
func artifactsConfig(cfg config.ArtifactsConfig) artifacts.Config {
	return artifacts.Config{
		Type: artifacts.StoreType(cfg.Type),
		Dir:  cfg.Dir,
		S3: artifacts.S3Config{
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			UsePathStyle:    cfg.UsePathStyle,
		},
	}
}

func poolConfig(cfg config.DatabaseConfig) database.PoolConfig {
	pc := database.DefaultPoolConfig()
	if cfg.MaxOpenConns > 0 {
		pc.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		pc.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	pc.MaxIdleConns = min(pc.MaxIdleConns, pc.MaxOpenConns)
	return pc
}

// =============================================================================
// 🗄️ 存储后端
// =============================================================================

// openBackends 只打开 store.type 需要的后端。调用方负责关闭返回的连接。
func openBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (persistence.Backends, error) {
	var backends persistence.Backends

	switch persistence.StoreType(cfg.Store.Type) {
	case persistence.StoreTypeDatabase:
		if cfg.Database.AutoMigrate {
			if err := runAutoMigrate(ctx, cfg.Database, logger); err != nil {
				return backends, err
			}
		}
		pm, err := database.Open(cfg.Database.Driver, cfg.Database.DSN(), poolConfig(cfg.Database), logger)
		if err != nil {
			return backends, fmt.Errorf("open database: %w", err)
		}
		backends.DB = pm

	case persistence.StoreTypeRedis:
		opts := &redis.UniversalOptions{
			Addrs:        []string{cfg.Redis.Addr},
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}
		if cfg.Redis.TLS {
			opts.TLSConfig = tlsutil.DefaultTLSConfig()
		}
		client := redis.NewUniversalClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return backends, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		backends.Redis = client
	}

	return backends, nil
}

func runAutoMigrate(ctx context.Context, dbCfg config.DatabaseConfig, logger *zap.Logger) error {
	migrator, err := migration.NewMigratorFromDatabaseConfig(dbCfg, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
