package llm

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BaSui01/agentchat/types"
)

// MaxSynthesisChars 单次合成允许的最大字符数，超出直接拒绝。
const MaxSynthesisChars = 4096

// Message 是发送给模型的一条轮次。
type Message struct {
	Role    types.Role `json:"role"`
	Content string     `json:"content"`
}

// Completion 是一次补全的结果。
type Completion struct {
	Text         string        `json:"text"`
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Usage        Usage         `json:"usage,omitempty"`
	Latency      time.Duration `json:"latency,omitempty"`
}

// Usage Token 用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Audio 是一段带格式标签的音频。Format 取扩展名形式，如 "mp3"、"wav"、"webm"。
type Audio struct {
	Data   []byte `json:"-"`
	Format string `json:"format"`
}

// Transcript 是转写结果。NoSpeech 为 true 时 Text 恒为空，
// 表示未检测到语音，而不是一段空白转写。
type Transcript struct {
	Text     string `json:"text"`
	NoSpeech bool   `json:"no_speech"`
	Language string `json:"language,omitempty"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Provider 是统一的模型能力集合。实现必须无状态、可被并发调用。
type Provider interface {
	// Name 返回变体名称，如 "openai"、"groq"、"gemini"。
	Name() string

	// Complete 根据有序轮次生成单条回复。
	// 开头的 system 轮次是人设指令，最后一条是最新的用户轮次。
	Complete(ctx context.Context, messages []Message) (*Completion, error)

	// Transcribe 将音频转写为文本。
	Transcribe(ctx context.Context, audio *Audio) (*Transcript, error)

	// Synthesize 将文本合成为音频。
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// NoSpeechTranscript 构造一个"未检测到语音"的结果。
func NoSpeechTranscript(provider, model string) *Transcript {
	return &Transcript{NoSpeech: true, Provider: provider, Model: model}
}

// NewTranscript 根据原始转写文本构造结果，空白文本视为未检测到语音。
func NewTranscript(text, provider, model string) *Transcript {
	text = strings.TrimSpace(text)
	if text == "" {
		return NoSpeechTranscript(provider, model)
	}
	return &Transcript{Text: text, Provider: provider, Model: model}
}

// ValidateSynthesisInput 校验合成输入：不能为空，不能超过 MaxSynthesisChars。
func ValidateSynthesisInput(provider, text string) error {
	if strings.TrimSpace(text) == "" {
		return types.NewSynthesisFailedError(provider, "synthesis input is empty")
	}
	if n := utf8.RuneCountInString(text); n > MaxSynthesisChars {
		return types.NewSynthesisFailedError(provider, "synthesis input exceeds character limit").
			WithHTTPStatus(413)
	}
	return nil
}

// ValidateAudio 校验转写输入。
func ValidateAudio(provider string, audio *Audio) error {
	if audio == nil || len(audio.Data) == 0 {
		return types.NewUserInputEmptyError("audio input is empty").WithProvider(provider)
	}
	return nil
}

// SplitPersona 把开头连续的 system 轮次合并为人设指令，返回其余轮次。
func SplitPersona(messages []Message) (string, []Message) {
	var parts []string
	i := 0
	for ; i < len(messages) && messages[i].Role == types.RoleSystem; i++ {
		if s := strings.TrimSpace(messages[i].Content); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n"), messages[i:]
}
