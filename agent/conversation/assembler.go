package conversation

import (
	"fmt"
	"strings"

	"github.com/BaSui01/agentchat/llm"
	"github.com/BaSui01/agentchat/types"
)

// ErrNothingToReplay 历史末尾不是未回答的用户轮次
var ErrNothingToReplay = types.NewInvalidRequestError("session has no unanswered user message to retry")

// Build 组装新轮次的提示：[persona, history..., user:newTurn]。
// persona 为空白时省略人设轮次。返回的切片与 history 不共享内存。
func Build(persona string, history []types.Message, newTurn string) []llm.Message {
	out := make([]llm.Message, 0, len(history)+2)
	out = appendPersona(out, persona)
	out = appendHistory(out, history)
	return append(out, llm.Message{Role: types.RoleUser, Content: newTurn})
}

// BuildReplay 组装重试提示：[persona, history...]，history 的最后一条必须是用户轮次。
func BuildReplay(persona string, history []types.Message) ([]llm.Message, error) {
	if _, ok := Unanswered(history); !ok {
		return nil, ErrNothingToReplay
	}

	out := make([]llm.Message, 0, len(history)+1)
	out = appendPersona(out, persona)
	return appendHistory(out, history), nil
}

// Unanswered 返回历史末尾未回答的用户消息
func Unanswered(history []types.Message) (*types.Message, bool) {
	if len(history) == 0 {
		return nil, false
	}
	last := history[len(history)-1]
	if last.Role != types.RoleUser {
		return nil, false
	}
	return &last, true
}

// Transcript 把提示渲染为 "role: content" 行，用于调试日志
func Transcript(messages []llm.Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", m.Role, m.Content)
	}
	return b.String()
}

func appendPersona(out []llm.Message, persona string) []llm.Message {
	if strings.TrimSpace(persona) == "" {
		return out
	}
	return append(out, llm.Message{Role: types.RoleSystem, Content: persona})
}

func appendHistory(out []llm.Message, history []types.Message) []llm.Message {
	for _, m := range history {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
