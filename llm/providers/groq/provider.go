package groq

import (
	"github.com/BaSui01/agentchat/llm/providers"
	"github.com/BaSui01/agentchat/llm/providers/openaicompat"
	"go.uber.org/zap"
)

// GroqProvider 实现 Groq 提供者.
type GroqProvider struct {
	*openaicompat.Provider
}

// NewGroqProvider 创建 Groq 提供者，未设置的字段取 DefaultGroqConfig 的值.
func NewGroqProvider(cfg providers.GroqConfig, logger *zap.Logger) *GroqProvider {
	def := providers.DefaultGroqConfig()
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
		if cfg.Speech.Language == "" {
			cfg.Speech.Language = def.Speech.Language
		}
	}
	if cfg.Speech.SpeechModel == "" {
		cfg.Speech.SpeechModel = def.Speech.SpeechModel
	}
	if cfg.Speech.Voice == "" {
		cfg.Speech.Voice = def.Speech.Voice
	}
	if cfg.Speech.Format == "" {
		// playai-tts 只支持 wav
		cfg.Speech.Format = def.Speech.Format
	}

	return &GroqProvider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName: "groq",
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Timeout:      cfg.Timeout,
			Chat:         cfg.Chat,
			Speech:       cfg.Speech,
		}, logger),
	}
}
