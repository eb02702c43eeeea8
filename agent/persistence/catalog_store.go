package persistence

import (
	"context"
	"strings"

	"github.com/BaSui01/agentchat/types"
)

// CatalogStore manages agents and their sessions.
type CatalogStore interface {
	Store

	CreateAgent(ctx context.Context, name, prompt string) (*types.Agent, error)
	GetAgent(ctx context.Context, id string) (*types.Agent, error)
	// ListAgents returns agents newest first.
	ListAgents(ctx context.Context) ([]types.Agent, error)
	// UpdateAgent changes only the non-nil fields and bumps UpdatedAt.
	UpdateAgent(ctx context.Context, id string, update AgentUpdate) (*types.Agent, error)
	// DeleteAgent removes the agent together with its sessions and their messages.
	DeleteAgent(ctx context.Context, id string) error

	// CreateSession requires an existing agent; a blank name becomes types.DefaultSessionName.
	CreateSession(ctx context.Context, agentID, name string) (*types.Session, error)
	GetSession(ctx context.Context, id string) (*types.Session, error)
	// ListSessions returns the agent's sessions newest first.
	ListSessions(ctx context.Context, agentID string) ([]types.Session, error)
	// DeleteSession removes the session and its whole history.
	DeleteSession(ctx context.Context, id string) error

	// ResolvePersona returns the persona instruction the session's agent currently holds.
	ResolvePersona(ctx context.Context, sessionID string) (*types.Persona, error)
}

// AgentUpdate holds optional agent changes.
type AgentUpdate struct {
	Name   *string `json:"name,omitempty"`
	Prompt *string `json:"prompt,omitempty"`
}

func validateAgent(name, prompt string) error {
	if strings.TrimSpace(name) == "" {
		return invalidInput("agent name must not be blank")
	}
	if strings.TrimSpace(prompt) == "" {
		return invalidInput("agent prompt must not be blank")
	}
	return nil
}

func applyAgentUpdate(a *types.Agent, u AgentUpdate) error {
	name, prompt := a.Name, a.Prompt
	if u.Name != nil {
		name = *u.Name
	}
	if u.Prompt != nil {
		prompt = *u.Prompt
	}
	if err := validateAgent(name, prompt); err != nil {
		return err
	}
	a.Name, a.Prompt = name, prompt
	return nil
}

func sessionName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return types.DefaultSessionName
	}
	return name
}

// resolvePersona joins a session with its agent.
func resolvePersona(ctx context.Context, c CatalogStore, sessionID string) (*types.Persona, error) {
	s, err := c.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	a, err := c.GetAgent(ctx, s.AgentID)
	if err != nil {
		return nil, err
	}
	return &types.Persona{
		SessionID:   s.ID,
		AgentID:     a.ID,
		AgentName:   a.Name,
		Instruction: a.Prompt,
	}, nil
}
