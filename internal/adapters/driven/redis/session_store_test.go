package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestSession(id string, userID int64) *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:               id,
		UserID:           userID,
		Token:            "token-" + id,
		RefreshToken:     "refresh-" + id,
		ExpiresAt:        now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(24 * time.Hour),
		CreatedAt:        now,
		UserAgent:        "Mozilla/5.0",
		IPAddress:        "192.168.1.1",
	}
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	session := newTestSession("s1", 7)
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save error = %v", err)
	}

	lookups := map[string]func() (*domain.Session, error){
		"by id":            func() (*domain.Session, error) { return store.Get(ctx, "s1") },
		"by token":         func() (*domain.Session, error) { return store.GetByToken(ctx, "token-s1") },
		"by refresh token": func() (*domain.Session, error) { return store.GetByRefreshToken(ctx, "refresh-s1") },
	}
	for name, lookup := range lookups {
		got, err := lookup()
		if err != nil {
			t.Errorf("%s: error = %v", name, err)
			continue
		}
		if got.ID != "s1" || got.UserID != 7 || got.UserAgent != "Mozilla/5.0" {
			t.Errorf("%s: got %+v", name, got)
		}
	}

	// Keys live as long as the refresh token, not the access token.
	ttl := mr.TTL(sessionPrefix + "s1")
	if ttl < 23*time.Hour || ttl > 24*time.Hour {
		t.Errorf("session TTL = %v, want about 24h", ttl)
	}
	if !mr.Exists(sessionUserPrefix + "7") {
		t.Error("user index set missing")
	}
}

func TestSessionStore_Save_FullyExpired(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client)

	session := newTestSession("old", 1)
	session.ExpiresAt = time.Now().Add(-time.Hour)
	session.RefreshExpiresAt = time.Now().Add(-time.Minute)

	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("Save error = %v", err)
	}
	if mr.Exists(sessionPrefix + "old") {
		t.Error("a fully expired session should not be stored")
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, newTestSession("s1", 1)); err != nil {
		t.Fatalf("Save error = %v", err)
	}
	mr.FastForward(25 * time.Hour)

	if _, err := store.GetByRefreshToken(ctx, "refresh-s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByRefreshToken after expiry error = %v, want ErrNotFound", err)
	}
}

func TestSessionStore_NotFound(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetByToken(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByToken error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetByRefreshToken(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByRefreshToken error = %v, want ErrNotFound", err)
	}
}

func TestSessionStore_Get_InvalidJSON(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client)

	mr.Set(sessionPrefix+"broken", "{not json")
	_, err := store.Get(context.Background(), "broken")
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get error = %v, want unmarshal error", err)
	}
}

func TestSessionStore_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, newTestSession("s1", 1)); err != nil {
		t.Fatalf("Save error = %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete error = %v", err)
	}

	for _, key := range []string{sessionPrefix + "s1", sessionTokenPrefix + "token-s1", sessionRefreshPrefix + "refresh-s1"} {
		if mr.Exists(key) {
			t.Errorf("key %s should be deleted", key)
		}
	}
	if ok, _ := mr.SIsMember(sessionUserPrefix+"1", "s1"); ok {
		t.Error("session should be removed from the user set")
	}

	// Deleting twice is fine.
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Errorf("second Delete error = %v", err)
	}
}

func TestSessionStore_ConsumeRefreshToken(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, newTestSession("s1", 1)); err != nil {
		t.Fatalf("Save error = %v", err)
	}

	session, err := store.ConsumeRefreshToken(ctx, "refresh-s1")
	if err != nil {
		t.Fatalf("ConsumeRefreshToken error = %v", err)
	}
	if session.ID != "s1" || session.UserID != 1 {
		t.Errorf("consumed session = %+v", session)
	}
	for _, key := range []string{sessionPrefix + "s1", sessionTokenPrefix + "token-s1", sessionRefreshPrefix + "refresh-s1"} {
		if mr.Exists(key) {
			t.Errorf("key %s should be deleted", key)
		}
	}

	if _, err := store.ConsumeRefreshToken(ctx, "refresh-s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("second ConsumeRefreshToken error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_ConsumeRefreshToken_Concurrent(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, newTestSession("s1", 1)); err != nil {
		t.Fatalf("Save error = %v", err)
	}

	const callers = 8
	var wg sync.WaitGroup
	var won atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ConsumeRefreshToken(ctx, "refresh-s1")
			switch {
			case err == nil:
				won.Add(1)
			case !errors.Is(err, domain.ErrSessionNotFound):
				t.Errorf("ConsumeRefreshToken error = %v", err)
			}
		}()
	}
	wg.Wait()

	if won.Load() != 1 {
		t.Errorf("callers that consumed the token = %d, want 1", won.Load())
	}
}

func TestSessionStore_DeleteByToken(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, newTestSession("s1", 1)); err != nil {
		t.Fatalf("Save error = %v", err)
	}
	if err := store.DeleteByToken(ctx, "token-s1"); err != nil {
		t.Fatalf("DeleteByToken error = %v", err)
	}
	if _, err := store.GetByRefreshToken(ctx, "refresh-s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("refresh token should be gone, error = %v", err)
	}
	if err := store.DeleteByToken(ctx, "token-s1"); err != nil {
		t.Errorf("DeleteByToken of a missing token error = %v", err)
	}
}

func TestSessionStore_ListAndDeleteByUser(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	for _, s := range []*domain.Session{newTestSession("a", 1), newTestSession("b", 1), newTestSession("c", 2)} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save error = %v", err)
		}
	}

	// A dangling ID is pruned from the set.
	mr.Del(sessionPrefix + "b")

	sessions, err := store.ListByUser(ctx, 1)
	if err != nil {
		t.Fatalf("ListByUser error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "a" {
		t.Errorf("ListByUser = %v, want [a]", sessions)
	}
	if ok, _ := mr.SIsMember(sessionUserPrefix+"1", "b"); ok {
		t.Error("dangling session id should be pruned")
	}

	if err := store.DeleteByUser(ctx, 1); err != nil {
		t.Fatalf("DeleteByUser error = %v", err)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("session a should be deleted, error = %v", err)
	}
	if _, err := store.Get(ctx, "c"); err != nil {
		t.Errorf("other users' sessions must survive, error = %v", err)
	}

	sessions, err = store.ListByUser(ctx, 1)
	if err != nil {
		t.Fatalf("ListByUser error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("ListByUser after DeleteByUser = %d sessions", len(sessions))
	}
}
