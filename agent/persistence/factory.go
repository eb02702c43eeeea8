package persistence

import (
	"fmt"

	"github.com/BaSui01/agentchat/internal/database"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backends carries the connections a store type may need.
type Backends struct {
	DB    *database.PoolManager
	Redis redis.UniversalClient
}

// NewRepository creates a Repository based on the configuration
func NewRepository(config StoreConfig, backends Backends, logger *zap.Logger) (Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var repo Repository
	switch config.Type {
	case StoreTypeMemory, "":
		repo = NewMemoryStore()
	case StoreTypeDatabase:
		if backends.DB == nil {
			return nil, fmt.Errorf("store type %q requires a database connection", config.Type)
		}
		repo = NewGormStore(backends.DB)
	case StoreTypeRedis:
		if backends.Redis == nil {
			return nil, fmt.Errorf("store type %q requires a redis client", config.Type)
		}
		repo = NewRedisStore(backends.Redis, config.KeyPrefix)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}

	logger.Info("message store initialized", zap.String("type", string(config.Type)))
	return repo, nil
}

// MustNewRepository creates a new Repository or panics on error.
//
// WARNING: This function should ONLY be used during application initialization.
func MustNewRepository(config StoreConfig, backends Backends, logger *zap.Logger) Repository {
	repo, err := NewRepository(config, backends, logger)
	if err != nil {
		panic(fmt.Sprintf("failed to create repository: %v", err))
	}
	return repo
}
