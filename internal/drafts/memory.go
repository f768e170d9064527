package drafts

import (
	"context"
	"time"

	"eventsbot/internal/utils"
)

// MemoryStore 单进程草稿存储，基于 LRU 缓存
type MemoryStore struct {
	cache *utils.Cache[Draft]
}

func NewMemoryStore(size int, ttl time.Duration) (*MemoryStore, error) {
	c, err := utils.NewCache[Draft](size, ttl)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: c}, nil
}

func (s *MemoryStore) Get(ctx context.Context, userID int64) (*Draft, error) {
	d, ok := s.cache.Get(key(userID))
	if !ok {
		return nil, ErrNoDraft
	}
	// copy the slice so callers can't mutate the cached value
	d.CategoryIDs = append([]uint(nil), d.CategoryIDs...)
	return &d, nil
}

func (s *MemoryStore) Put(ctx context.Context, userID int64, d *Draft) error {
	cp := *d
	cp.CategoryIDs = append([]uint(nil), d.CategoryIDs...)
	s.cache.Set(key(userID), cp)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID int64) error {
	s.cache.Delete(key(userID))
	return nil
}
