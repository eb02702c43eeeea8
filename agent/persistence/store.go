// Package persistence provides persistent storage interfaces and implementations
// for session history and the agent/session catalog.
//
// Supported backends:
// - Memory: For development and testing (default)
// - Database: GORM over SQLite, PostgreSQL or MySQL
// - Redis: For distributed production deployments
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/agentchat/types"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeDatabase StoreType = "database"
	StoreTypeRedis    StoreType = "redis"
)

// StoreConfig is the base configuration for all store implementations
type StoreConfig struct {
	// Type is the storage backend type
	Type StoreType `json:"type" yaml:"type"`

	// KeyPrefix is the prefix for all Redis keys (only used when Type is "redis")
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// DefaultStoreConfig returns the default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:      StoreTypeMemory,
		KeyPrefix: "agentchat:",
	}
}

// Store is the base interface for all persistent stores
type Store interface {
	// Close closes the store and releases resources
	Close() error

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error
}

// Repository is one backend serving both history and catalog,
// so that whole-agent and whole-session deletes can cascade.
type Repository interface {
	MessageStore
	CatalogStore
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *types.Error
	if errors.As(err, &te) {
		return err
	}
	return types.NewStoreUnavailableError(fmt.Sprintf("%s: %v", op, err), err)
}

func agentNotFound(id string) error {
	return types.NewNotFoundError(types.ErrAgentNotFound, "agent not found: "+id).WithCause(ErrNotFound)
}

func sessionNotFound(id string) error {
	return types.NewNotFoundError(types.ErrSessionNotFound, "session not found: "+id).WithCause(ErrNotFound)
}

func invalidInput(msg string) error {
	return types.NewInvalidRequestError(msg).WithCause(ErrInvalidInput)
}
