package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"carcost-bot/internal/application"
)

// RedisStore keeps conversation state in Redis so an in-flight dialog
// survives a bot restart. Entries expire after TTL of inactivity.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ application.SessionStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{Client: client, TTL: ttl}
}

func key(chatID int64) string {
	return "session:" + strconv.FormatInt(chatID, 10)
}

func (s *RedisStore) Get(ctx context.Context, chatID int64) (application.Session, bool, error) {
	raw, err := s.Client.Get(ctx, key(chatID)).Bytes()
	if err == redis.Nil {
		return application.Session{}, false, nil
	}
	if err != nil {
		return application.Session{}, false, fmt.Errorf("session get: %w", err)
	}
	var sess application.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return application.Session{}, false, fmt.Errorf("session decode: %w", err)
	}
	return sess, true, nil
}

func (s *RedisStore) Put(ctx context.Context, chatID int64, sess application.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := s.Client.Set(ctx, key(chatID), raw, s.TTL).Err(); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, chatID int64) error {
	if err := s.Client.Del(ctx, key(chatID)).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}
