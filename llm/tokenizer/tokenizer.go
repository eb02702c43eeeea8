package tokenizer

import (
	"fmt"
	"strings"
	"sync"
)

// Tokenizer 的 CountMessages 对消息可加：
// CountMessages(ms) = CountMessages(nil) + Σ (CountMessages([m]) - CountMessages(nil))。
// 预算裁剪依赖这一点逐条计费。
type Tokenizer interface {
	CountTokens(text string) (int, error)
	// CountMessages 包含每条消息的角色/分隔符开销和整段对话的收尾开销
	CountMessages(messages []Message) (int, error)
	MaxTokens() int
	Name() string
}

// Message 只带计数需要的字段，llm 包负责转换
type Message struct {
	Role    string
	Content string
}

// contextWindows 没有精确分词器的模型，估算器按前缀取上下文长度
var contextWindows = map[string]int{
	"llama-3.3-70b":    131072,
	"llama-3.1-8b":     131072,
	"gemini-2.0-flash": 1048576,
	"gemini-2.5-flash": 1048576,
	"gemini-2.5-pro":   1048576,
}

// registry 模型名 → Tokenizer，查找时精确匹配优先，其次最长前缀
// （"gpt-4o" 覆盖 "gpt-4o-2024-08-06"）
type registry struct {
	mu     sync.RWMutex
	byName map[string]Tokenizer
}

var defaultRegistry = &registry{byName: map[string]Tokenizer{}}

func (r *registry) put(model string, t Tokenizer) {
	r.mu.Lock()
	r.byName[model] = t
	r.mu.Unlock()
}

func (r *registry) lookup(model string) (Tokenizer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.byName[model]; ok {
		return t, true
	}
	prefix, ok := longestPrefix(model, r.byName)
	return r.byName[prefix], ok
}

// RegisterTokenizer 同名覆盖
func RegisterTokenizer(model string, t Tokenizer) { defaultRegistry.put(model, t) }

func GetTokenizer(model string) (Tokenizer, error) {
	if t, ok := defaultRegistry.lookup(model); ok {
		return t, nil
	}
	return nil, fmt.Errorf("no tokenizer registered for model: %s", model)
}

// GetTokenizerOrEstimator 未登记的模型回退到估算器
func GetTokenizerOrEstimator(model string) Tokenizer {
	if t, ok := defaultRegistry.lookup(model); ok {
		return t
	}
	window := 0
	if prefix, ok := longestPrefix(model, contextWindows); ok {
		window = contextWindows[prefix]
	}
	return NewEstimatorTokenizer(model, window)
}

func longestPrefix[V any](model string, table map[string]V) (string, bool) {
	best := ""
	for prefix := range table {
		if len(prefix) > len(best) && strings.HasPrefix(model, prefix) {
			best = prefix
		}
	}
	return best, best != ""
}
