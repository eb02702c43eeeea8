package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound 产物不存在
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidPath 路径为空、为绝对路径或包含 ".."
	ErrInvalidPath = errors.New("invalid artifact path")
	// ErrExists 目标路径已被占用
	ErrExists = errors.New("artifact already exists")
)

// Store 是音频产物的持久化接口，路径对调用方不透明。
type Store interface {
	// WriteAudio 把 data 写到 name 处并返回可用于 ReadAudio 的路径。
	WriteAudio(ctx context.Context, data []byte, name string) (string, error)
	// ReadAudio 读取路径对应的完整内容。
	ReadAudio(ctx context.Context, path string) ([]byte, error)
}

// CleanPath 规范化相对路径
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	p = path.Clean(p)
	if p == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return p, nil
}

// =============================================================================
// FileStore
// =============================================================================

// FileStore 在本地目录下保存产物。
type FileStore struct {
	basePath string
}

// NewFileStore 创建目录（如不存在）并返回 FileStore。
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath 返回根目录
func (s *FileStore) BasePath() string { return s.basePath }

// WriteAudio 以 O_EXCL 创建文件，已存在时返回 ErrExists，绝不覆盖。
func (s *FileStore) WriteAudio(ctx context.Context, data []byte, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel, err := CleanPath(name)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.basePath, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, rel)
		}
		return "", fmt.Errorf("failed to create artifact: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return rel, nil
}

func (s *FileStore) ReadAudio(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := CleanPath(p)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

var _ Store = (*FileStore)(nil)
