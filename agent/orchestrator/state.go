package orchestrator

import "fmt"

// State 定义一次轮次的处理状态
type State string

const (
	StateReceived         State = "received"          // 收到原始输入
	StatePreprocessed     State = "preprocessed"      // 文本已就绪（语音已转写）
	StateHistoryAssembled State = "history_assembled" // 提示已组装
	StateCompleting       State = "completing"        // 正在调用补全
	StateSynthesizing     State = "synthesizing"      // 正在合成回复语音
	StatePersisted        State = "persisted"         // 用户与助手消息已写入
	StateFailed           State = "failed"
)

// validTransitions 定义合法的状态转换，任何非终态都可以转入 Failed
var validTransitions = map[State][]State{
	StateReceived:         {StatePreprocessed, StateHistoryAssembled, StateFailed}, // 重试轮次跳过预处理
	StatePreprocessed:     {StateHistoryAssembled, StateFailed},
	StateHistoryAssembled: {StateCompleting, StateFailed},
	StateCompleting:       {StateSynthesizing, StatePersisted, StateFailed},
	StateSynthesizing:     {StatePersisted, StateFailed},
	StatePersisted:        {},
	StateFailed:           {},
}

// CanTransition 检查状态转换是否合法
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal 报告状态是否为终态
func (s State) IsTerminal() bool {
	return s == StatePersisted || s == StateFailed
}

// ErrInvalidTransition 非法状态转换错误
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid turn transition: %s -> %s", e.From, e.To)
}
