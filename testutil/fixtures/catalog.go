// =============================================================================
// 📦 测试数据工厂 - Agent / 会话 / 历史
// =============================================================================
package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/agentchat/llm"
	"github.com/BaSui01/agentchat/types"
)

const (
	PirateName   = "Pirate"
	PiratePrompt = "You are a pirate. Answer every question like a pirate would."
	ChefName     = "Chef"
	ChefPrompt   = "You are a French chef. Keep answers short."
)

// Catalog 是 fixtures 需要的最小目录写接口
type Catalog interface {
	CreateAgent(ctx context.Context, name, prompt string) (*types.Agent, error)
	CreateSession(ctx context.Context, agentID, name string) (*types.Session, error)
	Append(ctx context.Context, sessionID string, role types.Role, content, audioPath string) (*types.Message, error)
}

// PirateAgent 返回一个未持久化的 Agent
func PirateAgent() types.Agent {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return types.Agent{
		ID:        "agent-pirate",
		Name:      PirateName,
		Prompt:    PiratePrompt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SeedPirateSession 在 catalog 中创建 Pirate Agent 及一个空会话
func SeedPirateSession(ctx context.Context, c Catalog) (*types.Agent, *types.Session, error) {
	a, err := c.CreateAgent(ctx, PirateName, PiratePrompt)
	if err != nil {
		return nil, nil, err
	}
	s, err := c.CreateSession(ctx, a.ID, "")
	if err != nil {
		return nil, nil, err
	}
	return a, s, nil
}

// SeedHistory 写入 turns 个 user/assistant 交替的消息对
func SeedHistory(ctx context.Context, c Catalog, sessionID string, turns int) error {
	for i := 0; i < turns; i++ {
		if _, err := c.Append(ctx, sessionID, types.RoleUser, fmt.Sprintf("question %d", i+1), ""); err != nil {
			return err
		}
		if _, err := c.Append(ctx, sessionID, types.RoleAssistant, fmt.Sprintf("answer %d", i+1), ""); err != nil {
			return err
		}
	}
	return nil
}

// SimpleHistory 返回一段两轮对话
func SimpleHistory(sessionID string) []types.Message {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	contents := []struct {
		role    types.Role
		content string
	}{
		{types.RoleUser, "Hello"},
		{types.RoleAssistant, "Ahoy, matey!"},
		{types.RoleUser, "Where is the treasure?"},
		{types.RoleAssistant, "Buried on Skull Island, arr."},
	}
	out := make([]types.Message, len(contents))
	for i, c := range contents {
		out[i] = types.Message{
			ID:        fmt.Sprintf("msg-%d", i+1),
			SessionID: sessionID,
			Role:      c.role,
			Content:   c.content,
			Sequence:  int64(i + 1),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
	}
	return out
}

// Completion 返回一个带用量的 Completion
func Completion(text string) *llm.Completion {
	return &llm.Completion{
		Text:         text,
		Provider:     "mock",
		Model:        "mock-model",
		FinishReason: "stop",
		Usage:        llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}
