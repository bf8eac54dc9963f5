package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clinica-salud/identity-service/internal/core/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionStore_CreateGetDestroy(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	medico := "med-1"
	in := domain.SessionPayload{ID: "u1", Username: "doc1", Role: domain.RoleMedical, MedicoID: &medico}

	sid, err := store.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sid == "" {
		t.Fatal("expected a session id")
	}
	if !mr.Exists("session:" + sid) {
		t.Fatalf("expected key session:%s in redis", sid)
	}
	if ttl := mr.TTL("session:" + sid); ttl != time.Hour {
		t.Errorf("expected ttl 1h, got %v", ttl)
	}

	got, err := store.Get(ctx, sid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.ID != "u1" || got.Role != domain.RoleMedical {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.MedicoID == nil || *got.MedicoID != "med-1" || got.PacienteID != nil {
		t.Errorf("unexpected references: %+v", got)
	}

	if err := store.Destroy(ctx, sid); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if got, err := store.Get(ctx, sid); err != nil || got != nil {
		t.Errorf("expected nil after destroy, got %+v err=%v", got, err)
	}
}

func TestSessionStore_DestroyIsIdempotent(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewSessionStore(client, time.Hour)

	if err := store.Destroy(context.Background(), "never-existed"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	sid, err := store.Create(ctx, domain.SessionPayload{ID: "u1", Username: "a", Role: domain.RoleAdministrative})
	if err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)

	got, err := store.Get(ctx, sid)
	if err != nil || got != nil {
		t.Errorf("expected expired session to be absent, got %+v err=%v", got, err)
	}
}

func TestSessionStore_UniqueIDs(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewSessionStore(client, 0)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		sid, err := store.Create(ctx, domain.SessionPayload{ID: "u1"})
		if err != nil {
			t.Fatal(err)
		}
		if seen[sid] {
			t.Fatalf("duplicate session id %s", sid)
		}
		seen[sid] = true
	}
}

func TestSessionStore_ConnectionError(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	mr.Close()

	if _, err := store.Create(context.Background(), domain.SessionPayload{ID: "u1"}); err == nil {
		t.Error("expected error when redis is unavailable")
	}
	if err := store.Destroy(context.Background(), "x"); err == nil {
		t.Error("expected destroy error when redis is unavailable")
	}
}
