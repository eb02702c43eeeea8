package api

import (
	"github.com/BaSui01/agentchat/types"
)

// =============================================================================
// Agent / Session 请求
// =============================================================================

// CreateAgentRequest 创建 Agent
// @Description 创建 Agent 请求结构
type CreateAgentRequest struct {
	// 显示名称
	Name string `json:"name" example:"Captain"`
	// 人设指令，作为每轮提示的首条 system 消息
	Prompt string `json:"prompt" example:"You are a pirate. Answer like one."`
}

// UpdateAgentRequest 修改 Agent，未给出的字段保持不变
// @Description 修改 Agent 请求结构
type UpdateAgentRequest struct {
	Name   *string `json:"name,omitempty"`
	Prompt *string `json:"prompt,omitempty"`
}

// CreateSessionRequest 创建会话
// @Description 创建会话请求结构
type CreateSessionRequest struct {
	AgentID string `json:"agent_id" example:"6f1c..."`
	// 为空时使用 "New Chat"
	Name string `json:"name,omitempty" example:"Treasure hunt"`
}

// =============================================================================
// 轮次
// =============================================================================

// TextTurnRequest 文本轮次
// @Description 文本消息请求结构
type TextTurnRequest struct {
	Content string `json:"content" example:"Where is the treasure?"`
}

// TurnResponse 一次成功轮次的结果
// @Description 轮次响应结构
type TurnResponse struct {
	TurnID string `json:"turn_id"`
	// 本轮写入的用户消息；重试轮次时为被补答的那条
	User *types.Message `json:"user"`
	// 助手回复
	Assistant *types.Message `json:"assistant"`
	// 语音轮次的转写文本
	Transcript string `json:"transcript,omitempty"`
	// 助手语音的下载地址
	AudioURL string `json:"audio_url,omitempty"`
	// 语音合成失败，回复降级为纯文本
	Degraded bool `json:"degraded,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// MessageList 会话历史，按 sequence 升序
// @Description 会话历史响应结构
type MessageList struct {
	SessionID string          `json:"session_id"`
	Messages  []types.Message `json:"messages"`
}
