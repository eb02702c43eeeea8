package tokenizer

// 每条消息的角色与分隔符开销，以及整段对话的结束开销
const (
	messageOverhead      = 4
	conversationOverhead = 3
)

// 估算以 1/12 token 为单位：ASCII 约 4 字符一个 token，CJK 约 1.5 字符一个 token
const (
	unitsPerToken = 12
	asciiUnits    = 3
	cjkUnits      = 8
)

// cjkRanges 按 CJK 计费的码点区间
var cjkRanges = [][2]rune{
	{0x3000, 0x303F},   // 符号与标点
	{0x3400, 0x4DBF},   // 扩展 A
	{0x4E00, 0x9FFF},   // 统一表意文字
	{0xF900, 0xFAFF},   // 兼容表意文字
	{0xFF00, 0xFFEF},   // 全角/半角
	{0x20000, 0x2A6DF}, // 扩展 B
}

// EstimatorTokenizer 无需词表的近似计数器，用于没有精确分词器的模型（Groq、Gemini 等）
type EstimatorTokenizer struct {
	model     string
	maxTokens int
}

// NewEstimatorTokenizer maxTokens <= 0 时取 4096
func NewEstimatorTokenizer(model string, maxTokens int) *EstimatorTokenizer {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &EstimatorTokenizer{model: model, maxTokens: maxTokens}
}

// CountTokens 非空文本至少计 1 个 token
func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	units := 0
	for _, r := range text {
		units += runeUnits(r)
	}
	return max(units/unitsPerToken, 1), nil
}

func (e *EstimatorTokenizer) CountMessages(messages []Message) (int, error) {
	total := conversationOverhead
	for i := range messages {
		n, err := e.CountTokens(messages[i].Content)
		if err != nil {
			return 0, err
		}
		total += messageOverhead + n
	}
	return total, nil
}

func (e *EstimatorTokenizer) MaxTokens() int { return e.maxTokens }

func (e *EstimatorTokenizer) Name() string { return "estimator" }

func runeUnits(r rune) int {
	for _, rg := range cjkRanges {
		if r >= rg[0] && r <= rg[1] {
			return cjkUnits
		}
	}
	return asciiUnits
}
