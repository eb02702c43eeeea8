package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/agentchat/internal/database"
	"github.com/BaSui01/agentchat/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// appendAttempts 同一会话并发追加撞到唯一索引时的最大尝试次数
const appendAttempts = 3

// =============================================================================
// GORM 模型
// =============================================================================

type agentModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"size:255;not null"`
	Prompt    string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (agentModel) TableName() string { return "agents" }

type sessionModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	AgentID   string    `gorm:"size:36;not null;index"`
	Name      string    `gorm:"size:255;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (sessionModel) TableName() string { return "sessions" }

type messageModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	SessionID string    `gorm:"size:36;not null;uniqueIndex:idx_messages_session_seq,priority:1"`
	Sequence  int64     `gorm:"not null;uniqueIndex:idx_messages_session_seq,priority:2"`
	Role      string    `gorm:"size:16;not null"`
	Content   string    `gorm:"type:text;not null"`
	AudioPath string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"not null"`
}

func (messageModel) TableName() string { return "messages" }

func (m *agentModel) toAgent() *types.Agent {
	return &types.Agent{ID: m.ID, Name: m.Name, Prompt: m.Prompt, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *sessionModel) toSession() *types.Session {
	return &types.Session{ID: m.ID, AgentID: m.AgentID, Name: m.Name, CreatedAt: m.CreatedAt}
}

func (m *messageModel) toMessage() types.Message {
	return types.Message{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      types.Role(m.Role),
		Content:   m.Content,
		AudioPath: m.AudioPath,
		Sequence:  m.Sequence,
		CreatedAt: m.CreatedAt,
	}
}

// InitDatabase 自动迁移 agents / sessions / messages 三张表。
// 生产环境推荐用 migrate 子命令执行版本化迁移。
func InitDatabase(db *gorm.DB) error {
	if err := db.AutoMigrate(&agentModel{}, &sessionModel{}, &messageModel{}); err != nil {
		return storeErr("auto migrate", err)
	}
	return nil
}

// =============================================================================
// GormStore
// =============================================================================

// GormStore is a GORM-based implementation of Repository (SQLite, PostgreSQL, MySQL).
type GormStore struct {
	pool *database.PoolManager
	now  func() time.Time
}

// NewGormStore creates a store on top of a pool manager. Schema must already exist.
func NewGormStore(pool *database.PoolManager) *GormStore {
	return &GormStore{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Close 关闭底层连接池
func (s *GormStore) Close() error { return s.pool.Close() }

// Ping 检查数据库连接
func (s *GormStore) Ping(ctx context.Context) error {
	return storeErr("ping", s.pool.Ping(ctx))
}

func (s *GormStore) db(ctx context.Context) *gorm.DB {
	return s.pool.DB().WithContext(ctx)
}

func (s *GormStore) Append(ctx context.Context, sessionID string, role types.Role, content, audioPath string) (*types.Message, error) {
	e := Entry{Role: role, Content: content, AudioPath: audioPath}
	if err := validateEntry(sessionID, e); err != nil {
		return nil, err
	}

	var out types.Message
	err := s.pool.WithTransactionRetry(ctx, appendAttempts, func(tx *gorm.DB) error {
		msgs, err := s.appendTx(tx, sessionID, e)
		if err != nil {
			return err
		}
		out = msgs[0]
		return nil
	})
	if err != nil {
		return nil, storeErr("append message", err)
	}
	return &out, nil
}

func (s *GormStore) AppendPair(ctx context.Context, sessionID string, user, assistant Entry) (*types.Message, *types.Message, error) {
	if err := validatePair(sessionID, user, assistant); err != nil {
		return nil, nil, err
	}

	var msgs []types.Message
	err := s.pool.WithTransactionRetry(ctx, appendAttempts, func(tx *gorm.DB) error {
		var err error
		msgs, err = s.appendTx(tx, sessionID, user, assistant)
		return err
	})
	if err != nil {
		return nil, nil, storeErr("append message pair", err)
	}
	return &msgs[0], &msgs[1], nil
}

// appendTx 在事务内读取当前最大序号并顺序写入 entries
func (s *GormStore) appendTx(tx *gorm.DB, sessionID string, entries ...Entry) ([]types.Message, error) {
	var count int64
	if err := tx.Model(&sessionModel{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, sessionNotFound(sessionID)
	}

	var last int64
	if err := tx.Model(&messageModel{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&last).Error; err != nil {
		return nil, err
	}

	now := s.now()
	rows := make([]messageModel, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, messageModel{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			Sequence:  last + int64(i) + 1,
			Role:      string(e.Role),
			Content:   e.Content,
			AudioPath: e.AudioPath,
			CreatedAt: now,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]types.Message, len(rows))
	for i := range rows {
		out[i] = rows[i].toMessage()
	}
	return out, nil
}

func (s *GormStore) ListOrdered(ctx context.Context, sessionID string) ([]types.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	var rows []messageModel
	if err := s.db(ctx).Where("session_id = ?", sessionID).Order("sequence ASC").Find(&rows).Error; err != nil {
		return nil, storeErr("list messages", err)
	}
	out := make([]types.Message, len(rows))
	for i := range rows {
		out[i] = rows[i].toMessage()
	}
	return out, nil
}

// =============================================================================
// CatalogStore
// =============================================================================

func (s *GormStore) CreateAgent(ctx context.Context, name, prompt string) (*types.Agent, error) {
	if err := validateAgent(name, prompt); err != nil {
		return nil, err
	}
	now := s.now()
	m := agentModel{ID: uuid.New().String(), Name: name, Prompt: prompt, CreatedAt: now, UpdatedAt: now}
	if err := s.db(ctx).Create(&m).Error; err != nil {
		return nil, storeErr("create agent", err)
	}
	return m.toAgent(), nil
}

func (s *GormStore) GetAgent(ctx context.Context, id string) (*types.Agent, error) {
	var m agentModel
	err := s.db(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, agentNotFound(id)
	}
	if err != nil {
		return nil, storeErr("get agent", err)
	}
	return m.toAgent(), nil
}

func (s *GormStore) ListAgents(ctx context.Context) ([]types.Agent, error) {
	var rows []agentModel
	if err := s.db(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, storeErr("list agents", err)
	}
	out := make([]types.Agent, len(rows))
	for i := range rows {
		out[i] = *rows[i].toAgent()
	}
	return out, nil
}

func (s *GormStore) UpdateAgent(ctx context.Context, id string, update AgentUpdate) (*types.Agent, error) {
	var out *types.Agent
	err := s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		var m agentModel
		err := tx.Where("id = ?", id).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return agentNotFound(id)
		}
		if err != nil {
			return err
		}
		a := m.toAgent()
		if err := applyAgentUpdate(a, update); err != nil {
			return err
		}
		a.UpdatedAt = s.now()
		if err := tx.Model(&agentModel{}).Where("id = ?", id).Updates(map[string]any{
			"name":       a.Name,
			"prompt":     a.Prompt,
			"updated_at": a.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, storeErr("update agent", err)
	}
	return out, nil
}

func (s *GormStore) DeleteAgent(ctx context.Context, id string) error {
	err := s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&agentModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return agentNotFound(id)
		}
		sessions := tx.Model(&sessionModel{}).Select("id").Where("agent_id = ?", id)
		if err := tx.Where("session_id IN (?)", sessions).Delete(&messageModel{}).Error; err != nil {
			return err
		}
		return tx.Where("agent_id = ?", id).Delete(&sessionModel{}).Error
	})
	return storeErr("delete agent", err)
}

func (s *GormStore) CreateSession(ctx context.Context, agentID, name string) (*types.Session, error) {
	var out *types.Session
	err := s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&agentModel{}).Where("id = ?", agentID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return agentNotFound(agentID)
		}
		m := sessionModel{ID: uuid.New().String(), AgentID: agentID, Name: sessionName(name), CreatedAt: s.now()}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		out = m.toSession()
		return nil
	})
	if err != nil {
		return nil, storeErr("create session", err)
	}
	return out, nil
}

func (s *GormStore) GetSession(ctx context.Context, id string) (*types.Session, error) {
	var m sessionModel
	err := s.db(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sessionNotFound(id)
	}
	if err != nil {
		return nil, storeErr("get session", err)
	}
	return m.toSession(), nil
}

func (s *GormStore) ListSessions(ctx context.Context, agentID string) ([]types.Session, error) {
	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}
	var rows []sessionModel
	if err := s.db(ctx).Where("agent_id = ?", agentID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, storeErr("list sessions", err)
	}
	out := make([]types.Session, len(rows))
	for i := range rows {
		out[i] = *rows[i].toSession()
	}
	return out, nil
}

func (s *GormStore) DeleteSession(ctx context.Context, id string) error {
	err := s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&sessionModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return sessionNotFound(id)
		}
		return tx.Where("session_id = ?", id).Delete(&messageModel{}).Error
	})
	return storeErr("delete session", err)
}

func (s *GormStore) ResolvePersona(ctx context.Context, sessionID string) (*types.Persona, error) {
	return resolvePersona(ctx, s, sessionID)
}

var _ Repository = (*GormStore)(nil)
