package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// =============================================================================
// 🧪 PoolManager 测试
// =============================================================================

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gorm.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn: mockDB,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	return mockDB, mock, gormDB
}

func testPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

func TestNewPoolManager(t *testing.T) {
	mockDB, _, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, testPoolConfig(), nil)
	require.NoError(t, err)

	assert.NotNil(t, manager.DB())
	assert.NotNil(t, manager.logger)
	assert.Equal(t, "postgres", manager.Driver())
	assert.Equal(t, testPoolConfig(), manager.config)
	assert.Equal(t, 10, manager.Stats().MaxOpenConnections)
}

func TestNewPoolManager_NilDB(t *testing.T) {
	_, err := NewPoolManager(nil, testPoolConfig(), zap.NewNop())
	assert.Error(t, err)
}

func TestPoolManager_Ping(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, testPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectPing()
	assert.NoError(t, manager.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, manager.Ping(context.Background()))
}

func TestPoolManager_WithTransaction(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, testPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err = manager.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return nil
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_WithTransactionRollback(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, testPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err = manager.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_WithTransactionRetry(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, testPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	attempts := 0
	err = manager.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		if attempts == 1 {
			return errors.New(`duplicate key value violates unique constraint "idx_messages_session_seq"`)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_WithTransactionRetryPermanent(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, testPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err = manager.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		return errors.New("syntax error")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestPoolManager_Close(t *testing.T) {
	_, mock, gormDB := setupTestDB(t)

	manager, err := NewPoolManager(gormDB, testPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectClose()

	require.NoError(t, manager.Close())
	assert.NoError(t, manager.Close(), "second close is a no-op")
	assert.ErrorIs(t, manager.Ping(context.Background()), ErrPoolClosed)
	assert.ErrorIs(t, manager.WithTransaction(context.Background(), func(*gorm.DB) error { return nil }), ErrPoolClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_SQLite(t *testing.T) {
	manager, err := Open(DriverSQLite, ":memory:", testPoolConfig(), zap.NewNop())
	require.NoError(t, err)
	defer manager.Close()

	assert.Equal(t, DriverSQLite, manager.Driver())
	assert.Equal(t, 1, manager.Stats().MaxOpenConnections)
	require.NoError(t, manager.Ping(context.Background()))

	require.NoError(t, manager.DB().Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)").Error)
	require.NoError(t, manager.DB().Exec("INSERT INTO t (id) VALUES (1)").Error)
	var n int64
	require.NoError(t, manager.DB().Table("t").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestDialector_Unsupported(t *testing.T) {
	_, err := Dialector("oracle", "dsn")
	assert.Error(t, err)

	for _, d := range []string{DriverSQLite, DriverPostgres, DriverMySQL} {
		dl, err := Dialector(d, "dsn")
		require.NoError(t, err, d)
		assert.NotNil(t, dl)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("deadlock detected"), true},
		{errors.New("ERROR: could not serialize access (SQLSTATE 40001)"), true},
		{errors.New("UNIQUE constraint failed: messages.session_id, messages.sequence"), true},
		{errors.New("Error 1062: Duplicate entry 's-2' for key"), true},
		{errors.New("database is locked"), true},
		{gorm.ErrDuplicatedKey, true},
		{errors.New("syntax error at or near"), false},
		{gorm.ErrRecordNotFound, false},
	}
	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

func TestPoolConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  PoolConfig
		wantErr bool
	}{
		{"valid config", testPoolConfig(), false},
		{"default config", DefaultPoolConfig(), false},
		{"invalid max open conns", PoolConfig{MaxOpenConns: 0, MaxIdleConns: 5}, true},
		{"invalid max idle conns", PoolConfig{MaxOpenConns: 10, MaxIdleConns: 0}, true},
		{"idle > open", PoolConfig{MaxOpenConns: 5, MaxIdleConns: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
