package providers

// OpenAI 兼容线协议。openai 与 groq 变体共用，gemini 走官方 SDK。

type OpenAICompatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAICompatRequest POST /chat/completions
type OpenAICompatRequest struct {
	Model       string                `json:"model"`
	Messages    []OpenAICompatMessage `json:"messages"`
	MaxTokens   int                   `json:"max_tokens,omitempty"`
	Temperature float32               `json:"temperature,omitempty"`
}

type OpenAICompatResponse struct {
	ID      string               `json:"id"`
	Model   string               `json:"model"`
	Created int64                `json:"created"`
	Choices []OpenAICompatChoice `json:"choices"`
	Usage   *OpenAICompatUsage   `json:"usage,omitempty"`
}

type OpenAICompatChoice struct {
	Index        int                  `json:"index"`
	FinishReason string               `json:"finish_reason"`
	Message      *OpenAICompatMessage `json:"message"`
}

type OpenAICompatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAICompatTranscription POST /audio/transcriptions，response_format=json
type OpenAICompatTranscription struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// OpenAICompatSpeechRequest POST /audio/speech，响应体即音频
type OpenAICompatSpeechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
	Instructions   string  `json:"instructions,omitempty"`
}
