package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clinica-salud/identity-service/internal/core/domain"
)

const DefaultSessionTTL = 24 * time.Hour

// SessionStore keeps login sessions in Redis.
// Key format: session:<uuid>
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore wraps client. A non-positive ttl falls back to DefaultSessionTTL.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Create stores payload under a fresh random id and returns that id.
func (s *SessionStore) Create(ctx context.Context, payload domain.SessionPayload) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	sid := uuid.NewString()
	if err := s.client.Set(ctx, s.key(sid), b, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return sid, nil
}

// Get returns nil, nil when the session does not exist or has expired.
func (s *SessionStore) Get(ctx context.Context, sid string) (*domain.SessionPayload, error) {
	if sid == "" {
		return nil, nil
	}
	b, err := s.client.Get(ctx, s.key(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var payload domain.SessionPayload
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &payload, nil
}

// Destroy deletes the session. Deleting an unknown session is not an error.
func (s *SessionStore) Destroy(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, s.key(sid)).Err(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(sid string) string {
	return "session:" + sid
}
