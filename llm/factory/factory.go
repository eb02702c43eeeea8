package factory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/BaSui01/agentchat/llm"
	"github.com/BaSui01/agentchat/llm/providers"
	"github.com/BaSui01/agentchat/llm/providers/gemini"
	"github.com/BaSui01/agentchat/llm/providers/groq"
	"github.com/BaSui01/agentchat/llm/providers/openai"
	"github.com/BaSui01/agentchat/llm/retry"
	"github.com/BaSui01/agentchat/llm/tokenizer"
	"go.uber.org/zap"
)

// Config 描述要构建的 Provider 变体及其装饰参数。
type Config struct {
	// Provider 变体名称：openai、groq、gemini
	Provider string

	OpenAI providers.OpenAIConfig
	Groq   providers.GroqConfig
	Gemini providers.GeminiConfig

	// MaxPromptTokens 补全请求的 Token 预算，<= 0 时取模型上下文的 3/4
	MaxPromptTokens int

	// Retry 为 nil 时使用 retry.DefaultRetryPolicy
	Retry *retry.RetryPolicy
}

type constructor func(ctx context.Context, cfg Config, logger *zap.Logger) (llm.Provider, string, error)

var builtins = map[string]constructor{
	"openai": func(_ context.Context, cfg Config, logger *zap.Logger) (llm.Provider, string, error) {
		p := openai.NewOpenAIProvider(cfg.OpenAI, logger)
		return p, p.Cfg.Chat.Model, nil
	},
	"groq": func(_ context.Context, cfg Config, logger *zap.Logger) (llm.Provider, string, error) {
		p := groq.NewGroqProvider(cfg.Groq, logger)
		return p, p.Cfg.Chat.Model, nil
	},
	"gemini": func(ctx context.Context, cfg Config, logger *zap.Logger) (llm.Provider, string, error) {
		model := cfg.Gemini.Chat.Model
		if model == "" {
			model = providers.DefaultGeminiConfig().Chat.Model
		}
		p, err := gemini.NewGeminiProvider(ctx, cfg.Gemini, logger)
		if err != nil {
			return nil, "", err
		}
		return p, model, nil
	},
}

var registerTokenizers sync.Once

// NewProvider 创建裸 Provider 变体，不带任何装饰器。
func NewProvider(ctx context.Context, cfg Config, logger *zap.Logger) (llm.Provider, error) {
	p, _, err := build(ctx, cfg, logger)
	return p, err
}

// NewProviderFromConfig 创建完整装配的 Provider：
// 变体 -> BudgetedProvider -> ResilientProvider -> ObservedProvider。
// recorder 为 nil 时不记录指标，只保留追踪。
func NewProviderFromConfig(ctx context.Context, cfg Config, recorder llm.CallRecorder, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base, model, err := build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	registerTokenizers.Do(tokenizer.RegisterOpenAITokenizers)
	tok := tokenizer.GetTokenizerOrEstimator(model)

	var p llm.Provider = llm.NewBudgetedProvider(base, tok, cfg.MaxPromptTokens, logger)

	policy := cfg.Retry
	if policy == nil {
		policy = retry.DefaultRetryPolicy()
	}
	p = llm.NewResilientProvider(p, retry.NewBackoffRetryer(policy, logger), logger)
	p = llm.NewObservedProvider(p, recorder)

	logger.Info("llm provider ready",
		zap.String("provider", base.Name()),
		zap.String("model", model),
		zap.String("tokenizer", tok.Name()),
		zap.Int("max_retries", policy.MaxRetries),
	)
	return p, nil
}

func build(ctx context.Context, cfg Config, logger *zap.Logger) (llm.Provider, string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	ctor, ok := builtins[name]
	if !ok {
		return nil, "", fmt.Errorf("unknown provider %q (supported: %s)",
			cfg.Provider, strings.Join(SupportedProviders(), ", "))
	}
	return ctor(ctx, cfg, logger)
}

// SupportedProviders 返回内置变体名称
func SupportedProviders() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
