package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"eventsbot/internal/utils"

	"github.com/google/uuid"
)

var ErrBlobNotFound = errors.New("blob not found")

var extPattern = regexp.MustCompile(`^[a-z0-9]{1,8}$`)

// BlobStore is an opaque byte store keyed by generated ids.
type BlobStore interface {
	Save(ctx context.Context, data []byte, ext string) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// LocalStore 本地目录存储，读取结果带 LRU 缓存
type LocalStore struct {
	dir   string
	cache *utils.Cache[[]byte]
}

// NewLocalStore creates dir if needed. cacheSize 0 disables the read cache.
func NewLocalStore(dir string, cacheSize int) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	s := &LocalStore{dir: dir}
	if cacheSize > 0 {
		c, err := utils.NewCache[[]byte](cacheSize, 10*time.Minute)
		if err != nil {
			return nil, err
		}
		s.cache = c
	}
	return s, nil
}

func (s *LocalStore) Save(ctx context.Context, data []byte, ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		ext = "jpg"
	}
	if !extPattern.MatchString(ext) {
		return "", fmt.Errorf("invalid file extension %q", ext)
	}

	id := uuid.NewString()
	path := filepath.Join(s.dir, id+"."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	return id, nil
}

func (s *LocalStore) Get(ctx context.Context, id string) ([]byte, error) {
	path, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if data, ok := s.cache.Get(id); ok {
			return data, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(id, data)
	}
	return data, nil
}

func (s *LocalStore) Delete(ctx context.Context, id string) error {
	path, err := s.find(id)
	if err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(id)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// find resolves id to its file. Ids must be UUIDs, which keeps callers
// from escaping the storage directory.
func (s *LocalStore) find(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrBlobNotFound
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, id+".*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", ErrBlobNotFound
	}
	return matches[0], nil
}
