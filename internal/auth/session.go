package auth

import (
	"context"
	"sync"
	"time"

	"github.com/p-n-ai/diplomado/internal/platform/cache"
)

// SessionStore keeps encoded session principals by session id.
type SessionStore interface {
	Put(ctx context.Context, id string, data []byte, ttl time.Duration) error
	// Get returns ok=false for absent or expired sessions.
	Get(ctx context.Context, id string) (data []byte, ok bool, err error)
	Delete(ctx context.Context, id string) error
}

type memorySession struct {
	data    []byte
	expires time.Time
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

// NewMemorySessionStore creates an in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Put(_ context.Context, id string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expires time.Time
	if ttl > 0 {
		expires = s.now().Add(ttl)
	}
	s.sessions[id] = memorySession{data: append([]byte(nil), data...), expires: expires}
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false, nil
	}
	if !sess.expires.IsZero() && !s.now().Before(sess.expires) {
		delete(s.sessions, id)
		return nil, false, nil
	}
	return append([]byte(nil), sess.data...), true, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// RedisSessionStore keeps sessions in Redis so they survive restarts and
// are shared between server instances.
type RedisSessionStore struct {
	cache  *cache.Cache
	prefix string
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(c *cache.Cache) *RedisSessionStore {
	return &RedisSessionStore{cache: c, prefix: "diplomado:session:"}
}

func (s *RedisSessionStore) Put(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	return s.cache.Set(ctx, s.prefix+id, data, ttl)
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	return s.cache.Get(ctx, s.prefix+id)
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, s.prefix+id)
}
