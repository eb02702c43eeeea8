package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

type encodingInfo struct {
	encoding  string
	maxTokens int
}

// openAIEncodings OpenAI 模型前缀 → BPE 编码与上下文长度
var openAIEncodings = map[string]encodingInfo{
	"gpt-4o":        {"o200k_base", 128000},
	"gpt-4o-mini":   {"o200k_base", 128000},
	"gpt-4.1":       {"o200k_base", 1047576},
	"gpt-4.1-mini":  {"o200k_base", 1047576},
	"gpt-4-turbo":   {"cl100k_base", 128000},
	"gpt-4":         {"cl100k_base", 8192},
	"gpt-3.5-turbo": {"cl100k_base", 16385},
}

var fallbackEncoding = encodingInfo{"cl100k_base", 8192}

// TiktokenTokenizer OpenAI 模型的精确计数；编码表在第一次计数时加载
type TiktokenTokenizer struct {
	info encodingInfo

	load    sync.Once
	enc     *tiktoken.Tiktoken
	loadErr error
}

// NewTiktokenTokenizer 按最长前缀选择编码，未知模型使用 cl100k_base
func NewTiktokenTokenizer(model string) *TiktokenTokenizer {
	info := fallbackEncoding
	if prefix, ok := longestPrefix(model, openAIEncodings); ok {
		info = openAIEncodings[prefix]
	}
	return &TiktokenTokenizer{info: info}
}

// count 返回 text 的 token 数，首次调用可能需要下载 BPE 文件
func (t *TiktokenTokenizer) count(text string) (int, error) {
	t.load.Do(func() {
		t.enc, t.loadErr = tiktoken.GetEncoding(t.info.encoding)
		if t.loadErr != nil {
			t.loadErr = fmt.Errorf("load tiktoken encoding %s: %w", t.info.encoding, t.loadErr)
		}
	})
	if t.loadErr != nil {
		return 0, t.loadErr
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	return t.count(text)
}

// CountMessages 按 <|start|>role\ncontent<|end|> 计费
func (t *TiktokenTokenizer) CountMessages(messages []Message) (int, error) {
	total := conversationOverhead
	for _, m := range messages {
		content, err := t.count(m.Content)
		if err != nil {
			return 0, err
		}
		role, err := t.count(m.Role)
		if err != nil {
			return 0, err
		}
		total += messageOverhead + content + role
	}
	return total, nil
}

func (t *TiktokenTokenizer) MaxTokens() int { return t.info.maxTokens }

func (t *TiktokenTokenizer) Name() string { return "tiktoken[" + t.info.encoding + "]" }

// RegisterOpenAITokenizers 为已知 OpenAI 模型前缀登记 tiktoken 计数器
func RegisterOpenAITokenizers() {
	for model := range openAIEncodings {
		RegisterTokenizer(model, NewTiktokenTokenizer(model))
	}
}
