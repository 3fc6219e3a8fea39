package metadata

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	cache := NewCache[string](CacheConfig{TTL: time.Minute, MaxItems: 100})

	cache.Set("key1", "value1")

	val, ok := cache.Get("key1")
	if !ok {
		t.Error("expected key1 to exist")
	}
	if val != "value1" {
		t.Errorf("expected value1, got %v", val)
	}

	if _, ok := cache.Get("nonexistent"); ok {
		t.Error("expected key to not exist")
	}
}

func TestCache_Expiration(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := NewCache[int](CacheConfig{TTL: time.Minute, MaxItems: 10})
	cache.now = func() time.Time { return now }

	cache.Set("a", 1)
	if _, ok := cache.Get("a"); !ok {
		t.Fatal("expected a to exist immediately")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := cache.Get("a"); ok {
		t.Error("expected a to be expired")
	}
}

func TestCache_EvictsClosestToExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := NewCache[int](CacheConfig{TTL: time.Minute, MaxItems: 2})
	cache.now = func() time.Time { return now }

	cache.Set("first", 1)
	now = now.Add(time.Second)
	cache.Set("second", 2)
	now = now.Add(time.Second)
	cache.Set("third", 3)

	if cache.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cache.Len())
	}
	if _, ok := cache.Get("first"); ok {
		t.Error("expected first to be evicted")
	}
	if _, ok := cache.Get("third"); !ok {
		t.Error("expected third to be present")
	}
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	cache := NewCache[int](CacheConfig{TTL: time.Minute, MaxItems: 1})
	cache.Set("a", 1)
	cache.Set("a", 2)
	if v, _ := cache.Get("a"); v != 2 {
		t.Errorf("Get(a) = %d, want 2", v)
	}
}
