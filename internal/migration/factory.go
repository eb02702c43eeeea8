package migration

import (
	"fmt"

	appconfig "github.com/BaSui01/agentchat/config"
	"go.uber.org/zap"
)

const migrationsTable = "schema_migrations"

// NewMigratorFromDatabaseConfig 从 database 配置段构建；sqlite 的 Name 为文件路径
func NewMigratorFromDatabaseConfig(dbCfg appconfig.DatabaseConfig, logger *zap.Logger) (*DefaultMigrator, error) {
	dt, err := ParseDatabaseType(dbCfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}
	url := BuildDatabaseURL(dt, dbCfg.Host, dbCfg.Port, dbCfg.Name, dbCfg.User, dbCfg.Password, dbCfg.SSLMode)
	return newFor(dt, url, logger)
}

// NewMigratorFromURL 用于 `migrate --db-type --db-url`，URL 原样交给驱动
func NewMigratorFromURL(dbType, dbURL string, logger *zap.Logger) (*DefaultMigrator, error) {
	dt, err := ParseDatabaseType(dbType)
	if err != nil {
		return nil, err
	}
	return newFor(dt, dbURL, logger)
}

func newFor(dt DatabaseType, url string, logger *zap.Logger) (*DefaultMigrator, error) {
	return NewMigrator(&Config{DatabaseType: dt, DatabaseURL: url, TableName: migrationsTable}, logger)
}
