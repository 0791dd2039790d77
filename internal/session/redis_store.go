package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
)

// RedisStore keeps sessions in Redis under session:<token> with a TTL, so
// idle sessions expire without a reaper.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

type sessionRecord struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (s *RedisStore) Create(ctx context.Context, identity string, role scheduling.Role) (Session, error) {
	token := uuid.NewString()

	payload, err := json.Marshal(sessionRecord{Identity: identity, Role: string(role)})
	if err != nil {
		return Session{}, fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(token), payload, s.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}

	return Session{Token: token, Identity: identity, Role: role}, nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}

	return Session{Token: token, Identity: rec.Identity, Role: scheduling.Role(rec.Role)}, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
