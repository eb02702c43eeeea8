package providers

import "time"

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
type BaseProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ChatConfig 对话补全参数
type ChatConfig struct {
	Model       string  `json:"model" yaml:"model"`
	Temperature float32 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// SpeechConfig 转写与合成参数
type SpeechConfig struct {
	TranscriptionModel string `json:"transcription_model" yaml:"transcription_model"`
	Language           string `json:"language,omitempty" yaml:"language,omitempty"`
	SpeechModel        string `json:"speech_model" yaml:"speech_model"`
	Voice              string `json:"voice" yaml:"voice"`
	Format             string `json:"format" yaml:"format"`
	// Instructions 语气指令，仅 gpt-4o-mini-tts 这类模型支持
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// OpenAIConfig OpenAI Provider 配置
type OpenAIConfig struct {
	BaseProviderConfig `yaml:",inline"`
	Organization       string       `json:"organization,omitempty" yaml:"organization,omitempty"`
	Chat               ChatConfig   `json:"chat" yaml:"chat"`
	Speech             SpeechConfig `json:"speech" yaml:"speech"`
}

// GroqConfig Groq Provider 配置（OpenAI 兼容）
type GroqConfig struct {
	BaseProviderConfig `yaml:",inline"`
	Chat               ChatConfig   `json:"chat" yaml:"chat"`
	Speech             SpeechConfig `json:"speech" yaml:"speech"`
}

// GeminiConfig Gemini Provider 配置
type GeminiConfig struct {
	BaseProviderConfig `yaml:",inline"`
	Chat               ChatConfig   `json:"chat" yaml:"chat"`
	Speech             SpeechConfig `json:"speech" yaml:"speech"`
}

// DefaultOpenAIConfig 返回 OpenAI 默认配置
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseProviderConfig: BaseProviderConfig{
			BaseURL: "https://api.openai.com",
			Timeout: 60 * time.Second,
		},
		Chat: ChatConfig{Model: "gpt-4o-mini", Temperature: 0.7},
		Speech: SpeechConfig{
			TranscriptionModel: "gpt-4o-transcribe",
			SpeechModel:        "gpt-4o-mini-tts",
			Voice:              "coral",
			Format:             "mp3",
		},
	}
}

// DefaultGroqConfig 返回 Groq 默认配置
func DefaultGroqConfig() GroqConfig {
	return GroqConfig{
		BaseProviderConfig: BaseProviderConfig{
			BaseURL: "https://api.groq.com/openai",
			Timeout: 60 * time.Second,
		},
		Chat: ChatConfig{Model: "llama-3.3-70b-versatile", Temperature: 0.7},
		Speech: SpeechConfig{
			TranscriptionModel: "whisper-large-v3-turbo",
			Language:           "en",
			SpeechModel:        "playai-tts",
			Voice:              "Fritz-PlayAI",
			Format:             "wav",
		},
	}
}

// DefaultGeminiConfig 返回 Gemini 默认配置
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		BaseProviderConfig: BaseProviderConfig{
			Timeout: 60 * time.Second,
		},
		Chat: ChatConfig{Model: "gemini-2.5-flash", Temperature: 0.7},
		Speech: SpeechConfig{
			TranscriptionModel: "gemini-2.5-flash",
			SpeechModel:        "gemini-2.5-flash-preview-tts",
			Voice:              "Kore",
			Format:             "wav",
		},
	}
}
