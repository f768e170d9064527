package drafts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis"
)

// RedisStore keeps drafts in Redis so several bot instances can share them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the given redis:// URL.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping().Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Get(ctx context.Context, userID int64) (*Draft, error) {
	raw, err := s.client.WithContext(ctx).Get(key(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoDraft
		}
		return nil, err
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *RedisStore) Put(ctx context.Context, userID int64, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.client.WithContext(ctx).Set(key(userID), raw, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	return s.client.WithContext(ctx).Del(key(userID)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
