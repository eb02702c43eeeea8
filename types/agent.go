package types

import "time"

// DefaultSessionName 新建会话未命名时使用
const DefaultSessionName = "New Chat"

// Agent 是一个命名人设，Prompt 即人设指令。
// 修改 Prompt 只影响之后的轮次，不改写历史。
type Agent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session 在整个生命周期内归属唯一一个 Agent。
type Session struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Persona 是会话解析出的人设指令。
type Persona struct {
	SessionID   string `json:"session_id"`
	AgentID     string `json:"agent_id"`
	AgentName   string `json:"agent_name"`
	Instruction string `json:"instruction"`
}
