package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"internify-backend/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

type memSession struct {
	session   domain.Session
	expiresAt time.Time
}

// SessionStore keeps identity sessions in Redis, or in process memory when
// no Redis client is configured.
type SessionStore struct {
	client *goredis.Client
	ttl    time.Duration

	mu  sync.Mutex
	mem map[string]memSession
}

func NewSessionStore(client *goredis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl, mem: make(map[string]memSession)}
}

func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session id is required")
	}

	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.mem[session.ID] = memSession{session: *session, expiresAt: time.Now().Add(s.ttl)}
		return nil
	}

	b, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.ID, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		entry, ok := s.mem[sessionID]
		if !ok {
			return nil, domain.ErrNotFound
		}
		if time.Now().After(entry.expiresAt) {
			delete(s.mem, sessionID)
			return nil, domain.ErrNotFound
		}
		session := entry.session
		return &session, nil
	}

	b, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(b, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.mem, sessionID)
		return nil
	}
	return s.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}
