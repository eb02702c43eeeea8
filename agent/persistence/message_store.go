package persistence

import (
	"context"
	"strings"

	"github.com/BaSui01/agentchat/types"
)

// MessageStore is the append-only history of every session.
type MessageStore interface {
	Store

	// Append assigns the next sequence position of the session atomically
	// with respect to other appends on the same session.
	Append(ctx context.Context, sessionID string, role types.Role, content, audioPath string) (*types.Message, error)

	// AppendPair appends a user turn and its assistant reply under one
	// transaction boundary; either both are stored at adjacent positions or neither is.
	AppendPair(ctx context.Context, sessionID string, user, assistant Entry) (*types.Message, *types.Message, error)

	// ListOrdered returns the session history in creation order.
	// Re-listing after more appends yields a prefix-preserving superset.
	ListOrdered(ctx context.Context, sessionID string) ([]types.Message, error)
}

// Entry is the payload of a message about to be appended.
type Entry struct {
	Role      types.Role
	Content   string
	AudioPath string
}

func validateEntry(sessionID string, e Entry) error {
	if strings.TrimSpace(sessionID) == "" {
		return invalidInput("session id is required")
	}
	if !e.Role.Valid() {
		return invalidInput("invalid role: " + string(e.Role))
	}
	return nil
}

func validatePair(sessionID string, user, assistant Entry) error {
	if err := validateEntry(sessionID, user); err != nil {
		return err
	}
	if err := validateEntry(sessionID, assistant); err != nil {
		return err
	}
	if user.Role != types.RoleUser || assistant.Role != types.RoleAssistant {
		return invalidInput("pair must be a user entry followed by an assistant entry")
	}
	return nil
}
