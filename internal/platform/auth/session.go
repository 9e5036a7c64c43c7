package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session does not exist or has been
// idle longer than the store's timeout.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps server-side sessions keyed by an opaque session id.
// Every successful Touch restarts the idle timer.
type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Touch(ctx context.Context, sessionID string) (uuid.UUID, error)
	Delete(ctx context.Context, sessionID string) error
}

// =========== Redis ===========

const sessionKeyPrefix = "healthai:session:"

// RedisSessionStore stores sessions as plain keys whose TTL is the idle timeout.
type RedisSessionStore struct {
	client *redis.Client
	idle   time.Duration
}

func NewRedisSessionStore(client *redis.Client, idle time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, idle: idle}
}

func (s *RedisSessionStore) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	id := uuid.NewString()
	if err := s.client.Set(ctx, sessionKeyPrefix+id, userID.String(), s.idle).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return id, nil
}

func (s *RedisSessionStore) Touch(ctx context.Context, sessionID string) (uuid.UUID, error) {
	val, err := s.client.GetEx(ctx, sessionKeyPrefix+sessionID, s.idle).Result()
	if err != nil {
		if err == redis.Nil {
			return uuid.Nil, ErrSessionNotFound
		}
		return uuid.Nil, fmt.Errorf("touch session: %w", err)
	}
	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt session value: %w", err)
	}
	return userID, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// =========== In-memory ===========

type memorySession struct {
	userID   uuid.UUID
	lastSeen time.Time
}

// MemorySessionStore keeps sessions in process memory. It is meant for
// single-instance development setups without Redis. Expired sessions are
// swept every minute until Close is called.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	idle     time.Duration
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
}

func NewMemorySessionStore(idle time.Duration) *MemorySessionStore {
	s := newMemorySessionStore(idle, time.Now)
	go s.cleanupLoop()
	return s
}

func newMemorySessionStore(idle time.Duration, now func() time.Time) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		idle:     idle,
		now:      now,
		done:     make(chan struct{}),
	}
}

func (s *MemorySessionStore) Create(_ context.Context, userID uuid.UUID) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = memorySession{userID: userID, lastSeen: s.now()}
	s.mu.Unlock()
	return id, nil
}

func (s *MemorySessionStore) Touch(_ context.Context, sessionID string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return uuid.Nil, ErrSessionNotFound
	}
	now := s.now()
	if now.Sub(sess.lastSeen) > s.idle {
		delete(s.sessions, sessionID)
		return uuid.Nil, ErrSessionNotFound
	}
	sess.lastSeen = now
	s.sessions[sessionID] = sess
	return sess.userID, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Count returns the number of sessions currently held, expired or not.
func (s *MemorySessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the background sweep. Safe to call more than once.
func (s *MemorySessionStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemorySessionStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemorySessionStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idle {
			delete(s.sessions, id)
		}
	}
}
