package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, ttl), mr
}

func TestRedisStoreSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t, 0)
	ctx := context.Background()

	rec := NewRecord("conv-1", time.Now())
	rec.AppendTurns(0,
		Turn{Role: RoleUser, Text: "what is your return policy?"},
		Turn{Role: RoleAssistant, Text: "returns are accepted within 30 days"},
	)
	rec.Escalated = true

	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.ConversationID != "conv-1" {
		t.Fatalf("Load().ConversationID = %q, want conv-1", got.ConversationID)
	}
	if len(got.History) != 2 {
		t.Fatalf("Load().History length = %d, want 2", len(got.History))
	}
	if !got.Escalated {
		t.Fatal("Load().Escalated = false, want true")
	}
}

func TestRedisStoreLoadMissingRecord(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t, 0)

	if _, err := store.Load(context.Background(), "absent"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Load() error = %v, want ErrRecordNotFound", err)
	}
}

func TestRedisStoreSaveAppliesTTL(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t, time.Hour)
	ctx := context.Background()

	if err := store.Save(ctx, NewRecord("conv-2", time.Now())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	key := defaultStoreKeyPrefix + "conv-2"
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Fatalf("TTL(%q) = %v, want 1h", key, ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.Load(ctx, "conv-2"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Load() after expiry error = %v, want ErrRecordNotFound", err)
	}
}

func TestRedisStoreDeleteRemovesRecord(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t, 0)
	ctx := context.Background()

	if err := store.Save(ctx, NewRecord("conv-3", time.Now())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, "conv-3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "conv-3"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Load() after delete error = %v, want ErrRecordNotFound", err)
	}
}

func TestRedisStoreRejectsEmptyConversationID(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t, 0)
	ctx := context.Background()

	if _, err := store.Load(ctx, ""); !errors.Is(err, ErrInvalidConversationID) {
		t.Fatalf("Load(\"\") error = %v, want ErrInvalidConversationID", err)
	}
	if err := store.Delete(ctx, ""); !errors.Is(err, ErrInvalidConversationID) {
		t.Fatalf("Delete(\"\") error = %v, want ErrInvalidConversationID", err)
	}
	if err := store.Save(ctx, nil); !errors.Is(err, ErrNilRecord) {
		t.Fatalf("Save(nil) error = %v, want ErrNilRecord", err)
	}
}

func TestRedisStoreLoadCorruptPayload(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t, 0)

	if err := mr.Set(defaultStoreKeyPrefix+"conv-4", "{not json"); err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}

	if _, err := store.Load(context.Background(), "conv-4"); err == nil {
		t.Fatal("Load() error = nil, want unmarshal error")
	}
}
