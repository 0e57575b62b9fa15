package service

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRedisNegativeLookupCacheStoreSetGetInvalidateAndStale(t *testing.T) {
	ctx := context.Background()
	server, client := newRedisClientForTest(t)
	store := NewRedisNegativeLookupCacheStore(client, "neg_test")

	key := "ghost-channel"

	hit, err := store.Get(ctx, channelProfileNamespace, key)
	if err != nil {
		t.Fatalf("initial get: %v", err)
	}
	if hit {
		t.Fatal("expected initial miss")
	}

	if err := store.Set(ctx, channelProfileNamespace, key, 2*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	hit, err = store.Get(ctx, channelProfileNamespace, key)
	if err != nil {
		t.Fatalf("get after set: %v", err)
	}
	if !hit {
		t.Fatal("expected hit after set")
	}

	server.FastForward(3 * time.Second)
	hit, err = store.Get(ctx, channelProfileNamespace, key)
	if err != nil {
		t.Fatalf("get after ttl expiry: %v", err)
	}
	if hit {
		t.Fatal("expected miss after ttl expiry")
	}

	if err := store.Set(ctx, channelProfileNamespace, key, time.Minute); err != nil {
		t.Fatalf("set before invalidate: %v", err)
	}
	if err := store.InvalidateNamespace(ctx, channelProfileNamespace); err != nil {
		t.Fatalf("invalidate namespace: %v", err)
	}
	hit, err = store.Get(ctx, channelProfileNamespace, key)
	if err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if hit {
		t.Fatal("expected miss after invalidate")
	}
}

func TestRedisNegativeLookupCacheStoreHashesKeys(t *testing.T) {
	ctx := context.Background()
	server, client := newRedisClientForTest(t)
	store := NewRedisNegativeLookupCacheStore(client, "neg_test")

	if err := store.Set(ctx, channelProfileNamespace, "probed-username", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	for _, key := range server.Keys() {
		if strings.Contains(key, "probed-username") {
			t.Fatalf("probed identifier leaked into redis key %q", key)
		}
	}
}
