package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BaSui01/agentchat/types"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of Repository.
// 适合开发和测试，数据在重启时丢失。
type MemoryStore struct {
	mu       sync.RWMutex
	agents   map[string]*types.Agent
	sessions map[string]*types.Session
	messages map[string][]types.Message // sessionID -> history
	created  map[string]int64           // agent/session id -> insertion order
	counter  int64
	closed   bool
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:   make(map[string]*types.Agent),
		sessions: make(map[string]*types.Session),
		messages: make(map[string][]types.Message),
		created:  make(map[string]int64),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Close 关闭存储，之后的所有操作返回 STORE_UNAVAILABLE
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping 检查存储是否可用
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storeErr("ping", ErrStoreClosed)
	}
	return nil
}

// =============================================================================
// MessageStore
// =============================================================================

func (s *MemoryStore) Append(ctx context.Context, sessionID string, role types.Role, content, audioPath string) (*types.Message, error) {
	e := Entry{Role: role, Content: content, AudioPath: audioPath}
	if err := validateEntry(sessionID, e); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSessionLocked(sessionID); err != nil {
		return nil, err
	}
	msg := s.appendLocked(sessionID, e)
	return &msg, nil
}

func (s *MemoryStore) AppendPair(ctx context.Context, sessionID string, user, assistant Entry) (*types.Message, *types.Message, error) {
	if err := validatePair(sessionID, user, assistant); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSessionLocked(sessionID); err != nil {
		return nil, nil, err
	}
	u := s.appendLocked(sessionID, user)
	a := s.appendLocked(sessionID, assistant)
	return &u, &a, nil
}

func (s *MemoryStore) ListOrdered(ctx context.Context, sessionID string) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storeErr("list messages", ErrStoreClosed)
	}
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, sessionNotFound(sessionID)
	}
	history := s.messages[sessionID]
	out := make([]types.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) checkSessionLocked(sessionID string) error {
	if s.closed {
		return storeErr("append message", ErrStoreClosed)
	}
	if _, ok := s.sessions[sessionID]; !ok {
		return sessionNotFound(sessionID)
	}
	return nil
}

func (s *MemoryStore) appendLocked(sessionID string, e Entry) types.Message {
	history := s.messages[sessionID]
	msg := types.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      e.Role,
		Content:   e.Content,
		AudioPath: e.AudioPath,
		Sequence:  int64(len(history)) + 1,
		CreatedAt: s.now(),
	}
	s.messages[sessionID] = append(history, msg)
	return msg
}

// =============================================================================
// CatalogStore
// =============================================================================

func (s *MemoryStore) CreateAgent(ctx context.Context, name, prompt string) (*types.Agent, error) {
	if err := validateAgent(name, prompt); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storeErr("create agent", ErrStoreClosed)
	}
	now := s.now()
	a := &types.Agent{
		ID:        uuid.New().String(),
		Name:      name,
		Prompt:    prompt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.agents[a.ID] = a
	s.track(a.ID)
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) GetAgent(ctx context.Context, id string) (*types.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storeErr("get agent", ErrStoreClosed)
	}
	a, ok := s.agents[id]
	if !ok {
		return nil, agentNotFound(id)
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ListAgents(ctx context.Context) ([]types.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storeErr("list agents", ErrStoreClosed)
	}
	out := make([]types.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return s.created[out[i].ID] > s.created[out[j].ID]
	})
	return out, nil
}

func (s *MemoryStore) UpdateAgent(ctx context.Context, id string, update AgentUpdate) (*types.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storeErr("update agent", ErrStoreClosed)
	}
	a, ok := s.agents[id]
	if !ok {
		return nil, agentNotFound(id)
	}
	next := *a
	if err := applyAgentUpdate(&next, update); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	*a = next
	return &next, nil
}

func (s *MemoryStore) DeleteAgent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeErr("delete agent", ErrStoreClosed)
	}
	if _, ok := s.agents[id]; !ok {
		return agentNotFound(id)
	}
	for sid, sess := range s.sessions {
		if sess.AgentID == id {
			delete(s.sessions, sid)
			delete(s.messages, sid)
			delete(s.created, sid)
		}
	}
	delete(s.agents, id)
	delete(s.created, id)
	return nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, agentID, name string) (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storeErr("create session", ErrStoreClosed)
	}
	if _, ok := s.agents[agentID]; !ok {
		return nil, agentNotFound(agentID)
	}
	sess := &types.Session{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		Name:      sessionName(name),
		CreatedAt: s.now(),
	}
	s.sessions[sess.ID] = sess
	s.track(sess.ID)
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storeErr("get session", ErrStoreClosed)
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, sessionNotFound(id)
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) ListSessions(ctx context.Context, agentID string) ([]types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storeErr("list sessions", ErrStoreClosed)
	}
	if _, ok := s.agents[agentID]; !ok {
		return nil, agentNotFound(agentID)
	}
	out := make([]types.Session, 0)
	for _, sess := range s.sessions {
		if sess.AgentID == agentID {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.created[out[i].ID] > s.created[out[j].ID]
	})
	return out, nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeErr("delete session", ErrStoreClosed)
	}
	if _, ok := s.sessions[id]; !ok {
		return sessionNotFound(id)
	}
	delete(s.sessions, id)
	delete(s.messages, id)
	delete(s.created, id)
	return nil
}

func (s *MemoryStore) track(id string) {
	s.counter++
	s.created[id] = s.counter
}

func (s *MemoryStore) ResolvePersona(ctx context.Context, sessionID string) (*types.Persona, error) {
	return resolvePersona(ctx, s, sessionID)
}

var _ Repository = (*MemoryStore)(nil)
