package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BaSui01/agentchat/internal/audio"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind 区分产物来源
type Kind string

const (
	KindInbound  Kind = "in"  // 用户上传
	KindOutbound Kind = "out" // 合成回复
)

// ErrTooLarge 产物超过大小上限
var ErrTooLarge = errors.New("artifact exceeds size limit")

// Artifact 是一次写入的结果。
type Artifact struct {
	Path      string    `json:"path"`
	Kind      Kind      `json:"kind"`
	SessionID string    `json:"session_id"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// ManagerConfig configures the artifact manager.
type ManagerConfig struct {
	MaxSize int64 `json:"max_size"`
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxSize: 25 * 1024 * 1024, // 25MB
	}
}

// Manager 负责命名并写入产物。
//
// 路径形如 <session-id>/<kind>-<counter>-<token>.<ext>：counter 在进程内单调递增，
// token 为随机 UUID，跨进程、跨会话并发写入也不会冲突。
type Manager struct {
	store   Store
	maxSize int64
	counter atomic.Uint64
	logger  *zap.Logger
}

// NewManager creates a new artifact manager.
func NewManager(config ManagerConfig, store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   store,
		maxSize: config.MaxSize,
		logger:  logger.With(zap.String("component", "artifact_manager")),
	}
}

// Name 生成新的产物路径
func (m *Manager) Name(sessionID string, kind Kind, format string) string {
	n := m.counter.Add(1)
	return fmt.Sprintf("%s/%s-%d-%s%s",
		sanitizeSegment(sessionID), kind, n, uuid.NewString(), audio.Extension(format))
}

// Save 写入一段音频并返回产物描述。
func (m *Manager) Save(ctx context.Context, sessionID string, kind Kind, data []byte, format string) (*Artifact, error) {
	if m.maxSize > 0 && int64(len(data)) > m.maxSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), m.maxSize)
	}

	name := m.Name(sessionID, kind, format)
	p, err := m.store.WriteAudio(ctx, data, name)
	if err != nil {
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}

	a := &Artifact{
		Path:      p,
		Kind:      kind,
		SessionID: sessionID,
		MimeType:  audio.MIMEType(format),
		Size:      int64(len(data)),
		Checksum:  computeChecksum(data),
		CreatedAt: time.Now(),
	}

	m.logger.Debug("artifact saved",
		zap.String("path", a.Path),
		zap.String("kind", string(kind)),
		zap.Int64("size", a.Size),
	)
	return a, nil
}

// Open 读取产物内容及其 MIME 类型
func (m *Manager) Open(ctx context.Context, p string) ([]byte, string, error) {
	data, err := m.store.ReadAudio(ctx, p)
	if err != nil {
		return nil, "", err
	}
	return data, audio.MIMEType(path.Ext(p)), nil
}

// sanitizeSegment 保证会话 ID 只占一个路径段
func sanitizeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '.':
			return '_'
		}
		return r
	}, s)
	if s == "" {
		return "_"
	}
	return s
}

func computeChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
