// =============================================================================
// 🗄️ MockStore - 消息存储模拟实现
// =============================================================================
// 以 persistence.MemoryStore 为底座，在写入与读取路径上支持错误注入和调用记录。
//
// 使用方法:
//
//	store := mocks.NewMockStore().WithAppendPairError(err)
//	orch := orchestrator.New(store, provider, ...)
// =============================================================================
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/agentchat/agent/persistence"
	"github.com/BaSui01/agentchat/types"
)

// MockStore 是 persistence.Repository 的模拟实现
type MockStore struct {
	*persistence.MemoryStore

	mu sync.Mutex

	// 错误注入
	appendErr     error
	appendPairErr error
	listErr       error
	personaErr    error
	appendFails   int

	// 调用记录
	appendCalls     int
	appendPairCalls int
	listCalls       int
}

// NewMockStore 创建新的 MockStore
func NewMockStore() *MockStore {
	return &MockStore{MemoryStore: persistence.NewMemoryStore()}
}

// WithAppendError 设置 Append 错误
func (m *MockStore) WithAppendError(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = err
	return m
}

// WithAppendFailTimes 前 n 次 Append 返回 err，之后恢复正常
func (m *MockStore) WithAppendFailTimes(n int, err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendFails = n
	m.appendErr = err
	return m
}

// WithAppendPairError 设置 AppendPair 错误
func (m *MockStore) WithAppendPairError(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendPairErr = err
	return m
}

// WithListError 设置 ListOrdered 错误
func (m *MockStore) WithListError(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
	return m
}

// WithPersonaError 设置 ResolvePersona 错误
func (m *MockStore) WithPersonaError(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.personaErr = err
	return m
}

// =============================================================================
// 🎯 Repository 方法
// =============================================================================

func (m *MockStore) Append(ctx context.Context, sessionID string, role types.Role, content, audioPath string) (*types.Message, error) {
	m.mu.Lock()
	m.appendCalls++
	err := m.appendErr
	if m.appendFails > 0 {
		m.appendFails--
		if m.appendFails == 0 {
			m.appendErr = nil
		}
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return m.MemoryStore.Append(ctx, sessionID, role, content, audioPath)
}

func (m *MockStore) AppendPair(ctx context.Context, sessionID string, user, assistant persistence.Entry) (*types.Message, *types.Message, error) {
	m.mu.Lock()
	m.appendPairCalls++
	err := m.appendPairErr
	m.mu.Unlock()

	if err != nil {
		return nil, nil, err
	}
	return m.MemoryStore.AppendPair(ctx, sessionID, user, assistant)
}

func (m *MockStore) ListOrdered(ctx context.Context, sessionID string) ([]types.Message, error) {
	m.mu.Lock()
	m.listCalls++
	err := m.listErr
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return m.MemoryStore.ListOrdered(ctx, sessionID)
}

func (m *MockStore) ResolvePersona(ctx context.Context, sessionID string) (*types.Persona, error) {
	m.mu.Lock()
	err := m.personaErr
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return m.MemoryStore.ResolvePersona(ctx, sessionID)
}

// =============================================================================
// 📊 调用记录
// =============================================================================

// AppendCallCount 返回 Append 调用次数
func (m *MockStore) AppendCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendCalls
}

// AppendPairCallCount 返回 AppendPair 调用次数
func (m *MockStore) AppendPairCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendPairCalls
}

// ListCallCount 返回 ListOrdered 调用次数
func (m *MockStore) ListCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// ClearErrors 清除全部注入的错误
func (m *MockStore) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = nil
	m.appendPairErr = nil
	m.listErr = nil
	m.personaErr = nil
	m.appendFails = 0
}

var _ persistence.Repository = (*MockStore)(nil)
