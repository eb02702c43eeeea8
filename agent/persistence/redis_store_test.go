package persistence

import (
	"context"
	"testing"

	"github.com/BaSui01/agentchat/types"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, "test:")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) Repository {
		s, _ := newMiniRedisStore(t)
		return s
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	ctx := context.Background()
	s, mr := newMiniRedisStore(t)

	a, err := s.CreateAgent(ctx, "Pirate", "You are a pirate")
	require.NoError(t, err)
	sess, err := s.CreateSession(ctx, a.ID, "")
	require.NoError(t, err)
	_, _, err = s.AppendPair(ctx, sess.ID,
		Entry{Role: types.RoleUser, Content: "Hello"},
		Entry{Role: types.RoleAssistant, Content: "Ahoy"},
	)
	require.NoError(t, err)

	seq, err := mr.Get("test:session:" + sess.ID + ":seq")
	require.NoError(t, err)
	assert.Equal(t, "2", seq)

	members, err := mr.ZMembers("test:session:" + sess.ID + ":messages")
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.True(t, mr.Exists("test:agent:"+a.ID))
}

func TestRedisStore_UnreachableIsStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newMiniRedisStore(t)
	a, err := s.CreateAgent(ctx, "Pirate", "You are a pirate")
	require.NoError(t, err)
	sess, err := s.CreateSession(ctx, a.ID, "")
	require.NoError(t, err)

	mr.Close()

	_, err = s.Append(ctx, sess.ID, types.RoleUser, "Hello", "")
	assert.Equal(t, types.ErrStoreUnavailable, types.GetErrorCode(err))
	_, err = s.ListOrdered(ctx, sess.ID)
	assert.Equal(t, types.ErrStoreUnavailable, types.GetErrorCode(err))
	assert.Equal(t, types.ErrStoreUnavailable, types.GetErrorCode(s.Ping(ctx)))
}
