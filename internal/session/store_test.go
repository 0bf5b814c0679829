package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/internal/storage"
	"github.com/diagnosis/roomstay/pkg/auth"
	"github.com/diagnosis/roomstay/pkg/logger"
)

type failingKV struct {
	storage.KV
	deleteErr error
	setErrKey string
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.setErrKey == key {
		return errors.New("write failed")
	}
	return f.KV.Set(ctx, key, value)
}

func (f *failingKV) Delete(ctx context.Context, keys ...string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.KV.Delete(ctx, keys...)
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func openStore(t *testing.T, kv storage.KV) *Store {
	t.Helper()
	s, err := Open(context.Background(), kv)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestStore_SetPersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := openStore(t, kv)

	if s.Authenticated() {
		t.Fatal("fresh store must be unauthenticated")
	}

	user := domain.UserProfile{ID: "1", Email: "a@a.com", Name: "A"}
	if err := s.Set(ctx, "tok123", user); err != nil {
		t.Fatalf("set: %v", err)
	}
	if s.Token() != "tok123" {
		t.Fatalf("expected tok123, got %q", s.Token())
	}

	reloaded := openStore(t, kv)
	if reloaded.Token() != "tok123" {
		t.Fatalf("expected token to survive reopen, got %q", reloaded.Token())
	}
	if u := reloaded.User(); u == nil || u.Email != "a@a.com" {
		t.Fatalf("expected user to survive reopen, got %+v", u)
	}
}

func TestStore_SetRejectsEmptyToken(t *testing.T) {
	s := openStore(t, storage.NewMemoryKV())
	if err := s.Set(context.Background(), "", domain.UserProfile{ID: "1"}); err == nil {
		t.Fatal("expected empty token to be rejected")
	}
}

func TestStore_PartialSessionIsDiscarded(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	kv.Set(ctx, TokenKey, "orphan")

	s := openStore(t, kv)
	if s.Authenticated() {
		t.Fatal("token without user must not count as a session")
	}
	if _, found, _ := kv.Get(ctx, TokenKey); found {
		t.Fatal("expected orphan token to be removed")
	}
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemoryKV())
	s.Set(ctx, "tok123", domain.UserProfile{ID: "1"})

	notified := 0
	s.OnInvalidate(func(Notice) { notified++ })

	for i := 0; i < 3; i++ {
		if err := s.Clear(ctx); err != nil {
			t.Fatalf("clear #%d: %v", i, err)
		}
	}
	if s.Token() != "" || s.User() != nil {
		t.Fatal("expected empty session after clear")
	}
	if notified != 0 {
		t.Fatalf("explicit clear must not signal invalidation, got %d", notified)
	}
}

func TestStore_InvalidateNotifiesOncePerCall(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemoryKV())
	s.Set(ctx, "tok123", domain.UserProfile{ID: "7"})

	var notices []Notice
	s.OnInvalidate(func(n Notice) { notices = append(notices, n) })

	if err := s.Invalidate(ctx, ReasonUnauthorized); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if s.Authenticated() || s.User() != nil {
		t.Fatal("expected empty session after invalidate")
	}
	if len(notices) != 1 {
		t.Fatalf("expected exactly one notice, got %d", len(notices))
	}
	if notices[0].UserID != "7" || notices[0].Reason != ReasonUnauthorized {
		t.Fatalf("unexpected notice %+v", notices[0])
	}
}

func TestStore_UnsubscribeStopsNotices(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemoryKV())

	count := 0
	unsubscribe := s.OnInvalidate(func(Notice) { count++ })
	s.Invalidate(ctx, ReasonUnauthorized)
	unsubscribe()
	s.Invalidate(ctx, ReasonUnauthorized)

	if count != 1 {
		t.Fatalf("expected 1 notice before unsubscribe, got %d", count)
	}
}

func TestStore_InvalidateClearsMemoryEvenWhenStorageFails(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{KV: storage.NewMemoryKV()}
	s := openStore(t, kv)
	s.Set(ctx, "tok123", domain.UserProfile{ID: "1"})

	kv.deleteErr = errors.New("disk full")
	notified := false
	s.OnInvalidate(func(Notice) { notified = true })

	if err := s.Invalidate(ctx, ReasonUnauthorized); err == nil {
		t.Fatal("expected storage error to be reported")
	}
	if s.Authenticated() {
		t.Fatal("in-memory session must be cleared regardless")
	}
	if !notified {
		t.Fatal("subscribers must still be notified")
	}
}

func TestStore_SetLogsFailedRollback(t *testing.T) {
	var logs bytes.Buffer
	prev := logger.Default()
	logger.SetDefault(logger.New(&logs, "error"))
	t.Cleanup(func() { logger.SetDefault(prev) })

	ctx := context.Background()
	kv := &failingKV{KV: storage.NewMemoryKV(), setErrKey: UserKey, deleteErr: errors.New("disk full")}
	s := openStore(t, kv)

	if err := s.Set(ctx, "tok123", domain.UserProfile{ID: "1"}); err == nil {
		t.Fatal("expected user write failure")
	}
	if s.Authenticated() {
		t.Fatal("failed set must not authenticate")
	}
	if !strings.Contains(logs.String(), "Failed to roll back persisted session token") ||
		!strings.Contains(logs.String(), "disk full") {
		t.Fatalf("expected rollback failure to be logged, got %q", logs.String())
	}
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemoryKV())

	if _, ok := s.Expiry(); ok {
		t.Fatal("no session, no expiry")
	}

	token, err := auth.NewAccessToken("1", "a@a.com", "A", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	s.Set(ctx, token, domain.UserProfile{ID: "1"})

	if exp, ok := s.Expiry(); !ok || exp.Before(time.Now()) {
		t.Fatalf("expected future expiry, got %v ok=%v", exp, ok)
	}
}

func TestPublishInvalidations(t *testing.T) {
	s := openStore(t, storage.NewMemoryKV())
	pub := &recordingPublisher{}
	PublishInvalidations(s, pub)

	s.Invalidate(context.Background(), ReasonUnauthorized)

	if len(pub.subjects) != 1 || pub.subjects[0] != "session.invalidated" {
		t.Fatalf("expected one session.invalidated event, got %v", pub.subjects)
	}
}
