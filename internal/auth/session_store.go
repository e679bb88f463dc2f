package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists sessions by identifier.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// RedisStore keeps each session as a JSON value under "session:<id>".
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "session:"}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	sess.ID = id
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+sess.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Name() string {
	return "redis"
}

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for expiry.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}

	var sess Session
	if err := json.Unmarshal(entry.data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	sess.ID = id
	return &sess, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = memoryEntry{data: data, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Name() string {
	return "memory"
}

// Len reports the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
