// Package types provides core types shared across agentchat.
// This package has ZERO dependencies on other agentchat packages to avoid circular imports.
package types

import "time"

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is one entry of a session's append-only history.
// Sequence starts at 1 and increases by exactly one per append.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	AudioPath string    `json:"audio_path,omitempty"`
	Sequence  int64     `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// HasAudio reports whether the message references an audio artifact.
func (m *Message) HasAudio() bool {
	return m != nil && m.AudioPath != ""
}
