package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/session"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
)

const sessionKeyPrefix = "session:attendance:"

var errSessionNotFound = appErrors.Clone(appErrors.ErrNotFound, "attendance session not found or expired")

type memorySession struct {
	snapshot  *session.Session
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory. Entries expire after
// ttl of inactivity.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewMemorySessionStore constructs an in-memory store.
func NewMemorySessionStore(ttl time.Duration, logger *zap.Logger) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemorySessionStore{sessions: make(map[string]memorySession), ttl: ttl, now: time.Now, logger: logger}
}

// Get returns a copy of the stored session.
func (s *MemorySessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || s.now().After(entry.expiresAt) {
		return nil, errSessionNotFound
	}
	return entry.snapshot.Clone(), nil
}

// Save stores a copy of sess and refreshes its expiry.
func (s *MemorySessionStore) Save(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = memorySession{snapshot: sess.Clone(), expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemorySessionStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *MemorySessionStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("expired attendance sessions removed", zap.Int("count", n))
			}
		}
	}
}

// RedisSessionStore keeps sessions as JSON snapshots in Redis so any
// gateway instance can serve them.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore constructs a Redis-backed store.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Get loads a session snapshot.
func (r *RedisSessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errSessionNotFound
		}
		return nil, fmt.Errorf("redis get session %s: %w", id, err)
	}
	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &sess, nil
}

// Save writes the snapshot and refreshes its TTL.
func (r *RedisSessionStore) Save(ctx context.Context, sess *session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ID, err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+sess.ID, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", sess.ID, err)
	}
	return nil
}

// Delete removes a session snapshot.
func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete session %s: %w", id, err)
	}
	return nil
}
