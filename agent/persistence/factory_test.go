package persistence

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRepository(t *testing.T) {
	repo, err := NewRepository(DefaultStoreConfig(), Backends{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, repo)

	_, err = NewRepository(StoreConfig{Type: StoreTypeDatabase}, Backends{}, nil)
	assert.Error(t, err)

	_, err = NewRepository(StoreConfig{Type: StoreTypeRedis}, Backends{}, nil)
	assert.Error(t, err)

	_, err = NewRepository(StoreConfig{Type: "mongo"}, Backends{}, nil)
	assert.Error(t, err)

	repo, err = NewRepository(StoreConfig{Type: StoreTypeDatabase}, Backends{DB: newSQLitePool(t)}, nil)
	require.NoError(t, err)
	assert.IsType(t, &GormStore{}, repo)
	_ = repo.Close()

	mr := miniredis.RunT(t)
	repo, err = NewRepository(StoreConfig{Type: StoreTypeRedis}, Backends{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, repo)
	_ = repo.Close()
}

func TestMustNewRepository_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNewRepository(StoreConfig{Type: "mongo"}, Backends{}, nil)
	})
}
