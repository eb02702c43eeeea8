package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 支持的驱动
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// ErrPoolClosed 连接池已关闭
var ErrPoolClosed = errors.New("pool is closed")

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" env:"MAX_OPEN_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`

	// 后台 ping 间隔，0 关闭
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
}

// DefaultPoolConfig 返回默认连接池配置
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     10 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
	}
}

// Validate 要求 0 < MaxIdleConns <= MaxOpenConns
func (c PoolConfig) Validate() error {
	switch {
	case c.MaxOpenConns <= 0:
		return fmt.Errorf("max_open_conns must be positive, got %d", c.MaxOpenConns)
	case c.MaxIdleConns <= 0:
		return fmt.Errorf("max_idle_conns must be positive, got %d", c.MaxIdleConns)
	case c.MaxIdleConns > c.MaxOpenConns:
		return fmt.Errorf("max_idle_conns (%d) must not exceed max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

func (c PoolConfig) apply(db *sql.DB) {
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetConnMaxLifetime(c.ConnMaxLifetime)
	db.SetConnMaxIdleTime(c.ConnMaxIdleTime)
}

// Dialector 按驱动名构建 GORM Dialector；SQLite 用纯 Go 的 glebarez/sqlite
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	open, ok := map[string]func(string) gorm.Dialector{
		DriverSQLite:   sqlite.Open,
		DriverPostgres: postgres.Open,
		DriverMySQL:    mysql.Open,
	}[strings.ToLower(driver)]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", driver)
	}
	return open(dsn), nil
}

// =============================================================================
// 🗄️ PoolManager
// =============================================================================

// PoolManager 持有 GORM 实例与底层 *sql.DB，Close 后所有操作返回 ErrPoolClosed
type PoolManager struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	driver string
	config PoolConfig
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	stop   context.CancelFunc
}

// Open 连接数据库并创建连接池。
// SQLite 固定单连接：单写者，且 :memory: 库随连接消失。
func Open(driver, dsn string, config PoolConfig, logger *zap.Logger) (*PoolManager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	driver = strings.ToLower(driver)
	if driver == DriverSQLite {
		config.MaxOpenConns, config.MaxIdleConns = 1, 1
		config.ConnMaxLifetime, config.ConnMaxIdleTime = 0, 0
	}
	pm, err := NewPoolManager(db, config, logger)
	if err != nil {
		return nil, err
	}
	pm.driver = driver
	return pm, nil
}

// NewPoolManager 包装已打开的 GORM 实例
func NewPoolManager(db *gorm.DB, config PoolConfig, logger *zap.Logger) (*PoolManager, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	config.apply(sqlDB)

	ctx, cancel := context.WithCancel(context.Background())
	pm := &PoolManager{
		db:     db,
		sqlDB:  sqlDB,
		driver: db.Dialector.Name(),
		config: config,
		logger: logger.With(zap.String("component", "db_pool")),
		stop:   cancel,
	}
	if config.HealthCheckInterval > 0 {
		go pm.watch(ctx, config.HealthCheckInterval)
	}

	pm.logger.Info("database pool initialized",
		zap.String("driver", pm.driver),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns),
	)
	return pm, nil
}

// DB 返回 GORM 实例
func (pm *PoolManager) DB() *gorm.DB {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.db
}

// Driver 返回小写驱动名，用作指标标签
func (pm *PoolManager) Driver() string { return pm.driver }

// Stats 返回 *sql.DB 的连接统计
func (pm *PoolManager) Stats() sql.DBStats {
	return pm.sqlDB.Stats()
}

// Ping 检查数据库连接
func (pm *PoolManager) Ping(ctx context.Context) error {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if pm.closed {
		return ErrPoolClosed
	}
	return pm.sqlDB.PingContext(ctx)
}

// Close 幂等
func (pm *PoolManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil
	}
	pm.closed = true
	pm.stop()
	pm.logger.Info("closing database pool")
	return pm.sqlDB.Close()
}

// watch 周期 ping，失败只记日志
func (pm *PoolManager) watch(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := pm.Ping(pingCtx)
		cancel()
		switch {
		case errors.Is(err, ErrPoolClosed):
			return
		case err != nil:
			pm.logger.Error("database health check failed", zap.Error(err))
		default:
			s := pm.Stats()
			pm.logger.Debug("database health check passed",
				zap.Int("open", s.OpenConnections),
				zap.Int("in_use", s.InUse),
				zap.Int("idle", s.Idle),
			)
		}
	}
}

// =============================================================================
// 🔄 事务
// =============================================================================

// TransactionFunc 在事务内执行
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction fn 返回错误时回滚
func (pm *PoolManager) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	pm.mu.RLock()
	closed, db := pm.closed, pm.db
	pm.mu.RUnlock()
	if closed {
		return ErrPoolClosed
	}
	return db.WithContext(ctx).Transaction(fn)
}

// WithTransactionRetry 对 IsRetryableError 的失败重跑整个事务，
// 间隔 20ms·2^n；maxAttempts 包含首次执行。
func (pm *PoolManager) WithTransactionRetry(ctx context.Context, maxAttempts int, fn TransactionFunc) error {
	maxAttempts = max(maxAttempts, 1)
	wait := 20 * time.Millisecond

	var err error
	for attempt := 1; ; attempt++ {
		if err = pm.WithTransaction(ctx, fn); err == nil || !IsRetryableError(err) {
			return err
		}
		if attempt == maxAttempts {
			return fmt.Errorf("transaction failed after %d attempts: %w", maxAttempts, err)
		}
		pm.logger.Warn("transaction failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
		wait *= 2
	}
}

// retryablePatterns 驱动错误文本中表示可重试的片段（小写）
var retryablePatterns = []string{
	"deadlock",
	"serialization failure", "40001", // PostgreSQL SQLSTATE 40001
	"unique constraint", "duplicate key", "duplicate entry", // 并发写入同一序号
	"database is locked", "lock timeout", "lock wait timeout",
	"connection reset", "broken pipe", "bad connection",
}

// IsRetryableError 死锁、序列化失败、唯一键冲突与瞬断
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
