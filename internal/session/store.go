package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/internal/storage"
	"github.com/diagnosis/roomstay/pkg/auth"
	"github.com/diagnosis/roomstay/pkg/logger"
)

// Persisted key names. They match what the web client kept in localStorage.
const (
	TokenKey = "token"
	UserKey  = "user"
)

type Reason string

const (
	ReasonUnauthorized Reason = "unauthorized"
)

// Notice is delivered to invalidation subscribers.
type Notice struct {
	Reason Reason
	UserID string
}

// Store holds the current bearer token and profile. Reads come from memory;
// every mutation is written through to the durable KV first.
type Store struct {
	kv storage.KV

	mu      sync.RWMutex
	token   string
	user    *domain.UserProfile
	subs    map[int]func(Notice)
	nextSub int
}

// Open loads any persisted session. A token without a profile (or the reverse)
// is not a session, so the leftovers are removed.
func Open(ctx context.Context, kv storage.KV) (*Store, error) {
	s := &Store{kv: kv, subs: make(map[int]func(Notice))}

	token, hasToken, err := kv.Get(ctx, TokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load session token: %w", err)
	}
	rawUser, hasUser, err := kv.Get(ctx, UserKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	if hasToken && hasUser && token != "" {
		var user domain.UserProfile
		if err := json.Unmarshal([]byte(rawUser), &user); err == nil {
			s.token = token
			s.user = &user
			return s, nil
		}
		logger.WarnContext(ctx, "Discarding unreadable persisted user profile")
	}

	if hasToken || hasUser {
		if err := kv.Delete(ctx, TokenKey, UserKey); err != nil {
			return nil, fmt.Errorf("failed to clean partial session: %w", err)
		}
	}
	return s, nil
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the profile, or nil when logged out.
func (s *Store) User() *domain.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *Store) Snapshot() domain.Session {
	return domain.Session{Token: s.Token(), User: s.User()}
}

// Expiry reports the exp claim when the token happens to be a JWT.
func (s *Store) Expiry() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	return auth.ExpiryUnverified(token)
}

// Set replaces the session wholesale. Only the login flow calls it.
func (s *Store) Set(ctx context.Context, token string, user domain.UserProfile) error {
	if token == "" {
		return fmt.Errorf("session: empty token")
	}

	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}
	if err := s.kv.Set(ctx, UserKey, string(rawUser)); err != nil {
		if delErr := s.kv.Delete(ctx, TokenKey); delErr != nil {
			logger.ErrorContext(ctx, "Failed to roll back persisted session token", "error", delErr)
		}
		return fmt.Errorf("failed to persist session user: %w", err)
	}

	s.token = token
	s.user = &user
	return nil
}

// Clear drops the session. Calling it while logged out is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) error {
	s.token = ""
	s.user = nil
	if err := s.kv.Delete(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("failed to delete persisted session: %w", err)
	}
	return nil
}

// Invalidate clears the session and notifies every subscriber once. The
// in-memory session is gone even if the durable delete fails.
func (s *Store) Invalidate(ctx context.Context, reason Reason) error {
	s.mu.Lock()
	userID := ""
	if s.user != nil {
		userID = s.user.ID.String()
	}
	err := s.clearLocked(ctx)
	subs := make([]func(Notice), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	logger.InfoContext(ctx, "Session invalidated", "reason", string(reason), "user_id", userID)

	notice := Notice{Reason: reason, UserID: userID}
	for _, fn := range subs {
		fn(notice)
	}
	return err
}

// OnInvalidate registers fn for invalidation notices. Subscribers run in
// registration order on the invalidating goroutine.
func (s *Store) OnInvalidate(fn func(Notice)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
