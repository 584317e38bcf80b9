package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type sample struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisOptions{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !strings.Contains(err.Error(), "connect to redis at 127.0.0.1:1") {
		t.Errorf("unexpected error %v", err)
	}
}

// newRedisTestStore connects to REDIS_ADDR under a per-test key prefix.
func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("redis at %s unavailable: %v", addr, err)
	}
	store := NewRedisStoreFromClient(client, "marketlens-test:"+uuid.NewString()+":")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()

	var got sample
	found, err := store.Get(ctx, "missing", &got)
	if err != nil || found {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}

	want := sample{Name: "AAPL", Values: []float64{1, 2, 3}}
	if err := store.Set(ctx, "k", want, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	found, err = store.Get(ctx, "k", &got)
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if got.Name != want.Name || len(got.Values) != 3 || got.Values[2] != 3 {
		t.Errorf("unexpected value %+v", got)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if found, _ := store.Get(ctx, "k", &got); found {
		t.Error("expected miss after delete")
	}
	if n, err := store.Purge(ctx); n != 0 || err != nil {
		t.Errorf("Purge: expected no-op, got %d %v", n, err)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()
	if err := store.Set(ctx, "short", sample{Name: "x"}, 50*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	var got sample
	if found, err := store.Get(ctx, "short", &got); found || err != nil {
		t.Errorf("expected expired miss, got found=%v err=%v", found, err)
	}
}
