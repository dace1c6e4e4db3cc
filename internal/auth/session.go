package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	SessionTTL    = 24 * time.Hour
	SessionCookie = "session_id"

	// sessionKeyPrefix namespaces session keys so they can share a Redis
	// database with other data.
	sessionKeyPrefix = "session:"
)

// Sessions is the session contract consumed by handlers and middleware.
type Sessions interface {
	Create(ctx context.Context, userID string) (string, error)
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionStore keeps session -> user mappings in Redis, expiring them
// after ttl.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionStore wraps rdb. A non-positive ttl falls back to SessionTTL.
func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func sessionKey(sid string) string { return sessionKeyPrefix + sid }

// Create mints a fresh session id for userID.
func (s *SessionStore) Create(ctx context.Context, userID string) (string, error) {
	sid := uuid.New().String()
	err := s.rdb.Set(ctx, sessionKey(sid), userID, s.ttl).Err()
	return sid, err
}

// Get returns the userID for a session, or "" if not found / expired.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (string, error) {
	val, err := s.rdb.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, sessionKey(sessionID)).Err()
}
