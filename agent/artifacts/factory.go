package artifacts

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// StoreType 产物后端类型
type StoreType string

const (
	StoreTypeLocal StoreType = "local"
	StoreTypeS3    StoreType = "s3"
)

// Config 选择并配置产物后端
type Config struct {
	Type StoreType
	Dir  string
	S3   S3Config
}

// NewStore creates a Store based on the configuration
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store Store
		err   error
	)
	switch cfg.Type {
	case StoreTypeLocal, "":
		dir := cfg.Dir
		if dir == "" {
			dir = "uploads"
		}
		store, err = NewFileStore(dir)
	case StoreTypeS3:
		store, err = NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported artifact store type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("artifact store initialized", zap.String("type", string(cfg.Type)))
	return store, nil
}
