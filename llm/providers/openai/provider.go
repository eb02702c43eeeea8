package openai

import (
	"net/http"

	"github.com/BaSui01/agentchat/llm/providers"
	"github.com/BaSui01/agentchat/llm/providers/openaicompat"
	"go.uber.org/zap"
)

// OpenAIProvider 实现 OpenAI 提供者.
type OpenAIProvider struct {
	*openaicompat.Provider
}

// NewOpenAIProvider 创建 OpenAI 提供者，未设置的字段取 DefaultOpenAIConfig 的值.
func NewOpenAIProvider(cfg providers.OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	cfg = withDefaults(cfg)

	org := cfg.Organization
	return &OpenAIProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName: "openai",
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Timeout:      cfg.Timeout,
			Chat:         cfg.Chat,
			Speech:       cfg.Speech,
			BuildHeaders: func(req *http.Request, apiKey string) {
				req.Header.Set("Authorization", "Bearer "+apiKey)
				if org != "" {
					req.Header.Set("OpenAI-Organization", org)
				}
			},
		}, logger),
	}
}

func withDefaults(cfg providers.OpenAIConfig) providers.OpenAIConfig {
	def := providers.DefaultOpenAIConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = def.Chat.Model
	}
	if cfg.Speech.TranscriptionModel == "" {
		cfg.Speech.TranscriptionModel = def.Speech.TranscriptionModel
	}
	if cfg.Speech.SpeechModel == "" {
		cfg.Speech.SpeechModel = def.Speech.SpeechModel
	}
	if cfg.Speech.Voice == "" {
		cfg.Speech.Voice = def.Speech.Voice
	}
	if cfg.Speech.Format == "" {
		cfg.Speech.Format = def.Speech.Format
	}
	return cfg
}
