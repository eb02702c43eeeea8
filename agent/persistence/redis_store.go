package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/agentchat/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// watchAttempts 乐观事务冲突时的最大尝试次数
const watchAttempts = 8

// RedisStore is a Redis-based implementation of Repository.
// Suitable for distributed production deployments.
//
// Key layout (prefix omitted):
//
//	agents                     ZSET  agent id scored by creation time
//	agent:{id}                 JSON  agent
//	agent:{id}:sessions        ZSET  session id scored by creation time
//	session:{id}               JSON  session
//	session:{id}:seq           INT   last assigned sequence
//	session:{id}:messages      ZSET  message JSON scored by sequence
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

// NewRedisStore creates a store on an existing client; the store takes ownership of it.
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultStoreConfig().KeyPrefix
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Close closes the store
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if the store is healthy
func (s *RedisStore) Ping(ctx context.Context) error {
	return storeErr("ping", s.client.Ping(ctx).Err())
}

func (s *RedisStore) agentsKey() string                 { return s.keyPrefix + "agents" }
func (s *RedisStore) agentKey(id string) string         { return s.keyPrefix + "agent:" + id }
func (s *RedisStore) agentSessionsKey(id string) string { return s.keyPrefix + "agent:" + id + ":sessions" }
func (s *RedisStore) sessionKey(id string) string       { return s.keyPrefix + "session:" + id }
func (s *RedisStore) seqKey(id string) string           { return s.keyPrefix + "session:" + id + ":seq" }
func (s *RedisStore) messagesKey(id string) string      { return s.keyPrefix + "session:" + id + ":messages" }

// watch runs fn as an optimistic transaction, retrying on conflicts.
func (s *RedisStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < watchAttempts; i++ {
		err = s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("optimistic transaction kept conflicting: %w", err)
}

// =============================================================================
// MessageStore
// =============================================================================

func (s *RedisStore) Append(ctx context.Context, sessionID string, role types.Role, content, audioPath string) (*types.Message, error) {
	e := Entry{Role: role, Content: content, AudioPath: audioPath}
	if err := validateEntry(sessionID, e); err != nil {
		return nil, err
	}
	msgs, err := s.appendEntries(ctx, sessionID, e)
	if err != nil {
		return nil, storeErr("append message", err)
	}
	return &msgs[0], nil
}

func (s *RedisStore) AppendPair(ctx context.Context, sessionID string, user, assistant Entry) (*types.Message, *types.Message, error) {
	if err := validatePair(sessionID, user, assistant); err != nil {
		return nil, nil, err
	}
	msgs, err := s.appendEntries(ctx, sessionID, user, assistant)
	if err != nil {
		return nil, nil, storeErr("append message pair", err)
	}
	return &msgs[0], &msgs[1], nil
}

// appendEntries WATCH 会话与序号键，MULTI/EXEC 内 INCRBY 并写入消息
func (s *RedisStore) appendEntries(ctx context.Context, sessionID string, entries ...Entry) ([]types.Message, error) {
	seqKey := s.seqKey(sessionID)
	sessKey := s.sessionKey(sessionID)
	var out []types.Message

	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, sessKey).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return sessionNotFound(sessionID)
		}
		last, err := tx.Get(ctx, seqKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		now := s.now()
		msgs := make([]types.Message, len(entries))
		payloads := make([]redis.Z, len(entries))
		for i, e := range entries {
			msgs[i] = types.Message{
				ID:        uuid.New().String(),
				SessionID: sessionID,
				Role:      e.Role,
				Content:   e.Content,
				AudioPath: e.AudioPath,
				Sequence:  last + int64(i) + 1,
				CreatedAt: now,
			}
			data, err := json.Marshal(msgs[i])
			if err != nil {
				return fmt.Errorf("failed to marshal message: %w", err)
			}
			payloads[i] = redis.Z{Score: float64(msgs[i].Sequence), Member: data}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.IncrBy(ctx, seqKey, int64(len(entries)))
			pipe.ZAdd(ctx, s.messagesKey(sessionID), payloads...)
			return nil
		})
		if err != nil {
			return err
		}
		out = msgs
		return nil
	}

	if err := s.watch(ctx, txf, seqKey, sessKey); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RedisStore) ListOrdered(ctx context.Context, sessionID string) ([]types.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	raw, err := s.client.ZRange(ctx, s.messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, storeErr("list messages", err)
	}
	out := make([]types.Message, 0, len(raw))
	for _, r := range raw {
		var m types.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, storeErr("decode message", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// =============================================================================
// CatalogStore
// =============================================================================

func (s *RedisStore) CreateAgent(ctx context.Context, name, prompt string) (*types.Agent, error) {
	if err := validateAgent(name, prompt); err != nil {
		return nil, err
	}
	now := s.now()
	a := &types.Agent{ID: uuid.New().String(), Name: name, Prompt: prompt, CreatedAt: now, UpdatedAt: now}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, storeErr("create agent", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.agentKey(a.ID), data, 0)
		pipe.ZAdd(ctx, s.agentsKey(), redis.Z{Score: float64(now.UnixNano()), Member: a.ID})
		return nil
	})
	if err != nil {
		return nil, storeErr("create agent", err)
	}
	return a, nil
}

func (s *RedisStore) GetAgent(ctx context.Context, id string) (*types.Agent, error) {
	data, err := s.client.Get(ctx, s.agentKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, agentNotFound(id)
	}
	if err != nil {
		return nil, storeErr("get agent", err)
	}
	var a types.Agent
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, storeErr("decode agent", err)
	}
	return &a, nil
}

func (s *RedisStore) ListAgents(ctx context.Context) ([]types.Agent, error) {
	ids, err := s.client.ZRevRange(ctx, s.agentsKey(), 0, -1).Result()
	if err != nil {
		return nil, storeErr("list agents", err)
	}
	out := make([]types.Agent, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetAgent(ctx, id)
		if types.IsErrorCode(err, types.ErrAgentNotFound) {
			continue // 并发删除
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *RedisStore) UpdateAgent(ctx context.Context, id string, update AgentUpdate) (*types.Agent, error) {
	key := s.agentKey(id)
	var out *types.Agent
	err := s.watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return agentNotFound(id)
		}
		if err != nil {
			return err
		}
		var a types.Agent
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		if err := applyAgentUpdate(&a, update); err != nil {
			return err
		}
		a.UpdatedAt = s.now()
		next, err := json.Marshal(&a)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err == nil {
			out = &a
		}
		return err
	}, key)
	if err != nil {
		return nil, storeErr("update agent", err)
	}
	return out, nil
}

func (s *RedisStore) DeleteAgent(ctx context.Context, id string) error {
	key := s.agentKey(id)
	sessionsKey := s.agentSessionsKey(id)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return agentNotFound(id)
		}
		sessionIDs, err := tx.ZRange(ctx, sessionsKey, 0, -1).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, sid := range sessionIDs {
				pipe.Del(ctx, s.sessionKey(sid), s.seqKey(sid), s.messagesKey(sid))
			}
			pipe.Del(ctx, key, sessionsKey)
			pipe.ZRem(ctx, s.agentsKey(), id)
			return nil
		})
		return err
	}, key, sessionsKey)
	return storeErr("delete agent", err)
}

func (s *RedisStore) CreateSession(ctx context.Context, agentID, name string) (*types.Session, error) {
	agentKey := s.agentKey(agentID)
	sess := &types.Session{ID: uuid.New().String(), AgentID: agentID, Name: sessionName(name), CreatedAt: s.now()}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, storeErr("create session", err)
	}
	err = s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, agentKey).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return agentNotFound(agentID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.sessionKey(sess.ID), data, 0)
			pipe.ZAdd(ctx, s.agentSessionsKey(agentID), redis.Z{Score: float64(sess.CreatedAt.UnixNano()), Member: sess.ID})
			return nil
		})
		return err
	}, agentKey)
	if err != nil {
		return nil, storeErr("create session", err)
	}
	return sess, nil
}

func (s *RedisStore) GetSession(ctx context.Context, id string) (*types.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sessionNotFound(id)
	}
	if err != nil {
		return nil, storeErr("get session", err)
	}
	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, storeErr("decode session", err)
	}
	return &sess, nil
}

func (s *RedisStore) ListSessions(ctx context.Context, agentID string) ([]types.Session, error) {
	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}
	ids, err := s.client.ZRevRange(ctx, s.agentSessionsKey(agentID), 0, -1).Result()
	if err != nil {
		return nil, storeErr("list sessions", err)
	}
	out := make([]types.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.GetSession(ctx, id)
		if types.IsErrorCode(err, types.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, id string) error {
	key := s.sessionKey(id)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sessionNotFound(id)
		}
		if err != nil {
			return err
		}
		var sess types.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key, s.seqKey(id), s.messagesKey(id))
			pipe.ZRem(ctx, s.agentSessionsKey(sess.AgentID), id)
			return nil
		})
		return err
	}, key)
	return storeErr("delete session", err)
}

func (s *RedisStore) ResolvePersona(ctx context.Context, sessionID string) (*types.Persona, error) {
	return resolvePersona(ctx, s, sessionID)
}

var _ Repository = (*RedisStore)(nil)
