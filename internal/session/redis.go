package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"railboard/internal/model"
)

const (
	tokenKeyPrefix = "session:token:"
	userKeyPrefix  = "session:user:"
)

// RedisStore persists sessions in Redis so they survive console restarts.
// Token and profile live under two distinct keys written in one transaction
// and deleted in one DEL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store. Sessions expire after ttl.
func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: client, ttl: ttl}
}

// Save writes both keys in a single MULTI/EXEC so a reader never observes a
// half-populated session.
func (s *RedisStore) Save(ctx context.Context, sid, token string, user model.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user profile: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKeyPrefix+sid, token, s.ttl)
		pipe.Set(ctx, userKeyPrefix+sid, payload, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Token returns the stored token or ErrNoSession.
func (s *RedisStore) Token(ctx context.Context, sid string) (string, error) {
	token, err := s.client.Get(ctx, tokenKeyPrefix+sid).Result()
	if err == redis.Nil {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("read session token: %w", err)
	}
	return token, nil
}

// User returns the stored profile or ErrNoSession.
func (s *RedisStore) User(ctx context.Context, sid string) (*model.User, error) {
	payload, err := s.client.Get(ctx, userKeyPrefix+sid).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session user: %w", err)
	}
	var user model.User
	if err := json.Unmarshal(payload, &user); err != nil {
		return nil, fmt.Errorf("unmarshal session user: %w", err)
	}
	return &user, nil
}

// Clear deletes both keys in one DEL.
func (s *RedisStore) Clear(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, tokenKeyPrefix+sid, userKeyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
