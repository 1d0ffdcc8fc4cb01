package cache

import (
	"path/filepath"
	"testing"
	"time"
)

type meta struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}

func newTestCache(t *testing.T) *BoltCache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestBoltCacheSetGet(t *testing.T) {
	c := newTestCache(t)

	if err := c.Set(BucketRegistry, "requests", meta{Version: "2.31.0", Count: 150}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got meta
	ok, err := c.Get(BucketRegistry, "requests", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Version != "2.31.0" || got.Count != 150 {
		t.Errorf("got %+v", got)
	}
}

func TestBoltCacheMiss(t *testing.T) {
	c := newTestCache(t)

	var got meta
	ok, err := c.Get(BucketRegistry, "missing", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}

func TestBoltCacheUnknownBucket(t *testing.T) {
	c := newTestCache(t)
	if err := c.Set("nope", "k", 1); err == nil {
		t.Error("expected error for unknown bucket")
	}
}

func TestBoltCacheExpiry(t *testing.T) {
	c := newTestCache(t)
	now := time.Now()
	c.now = func() time.Time { return now }

	if err := c.Set(BucketDatabase, "release", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c.front.Purge()

	c.now = func() time.Time { return now.Add(2 * time.Hour) }
	var got string
	ok, err := c.Get(BucketDatabase, "release", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected expired entry to miss")
	}

	removed, err := c.Purge()
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if removed != 1 {
		t.Errorf("Purge removed %d, want 1", removed)
	}
}

func TestBoltCachePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path, time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.Set(BucketRegistry, "click", meta{Version: "8.1.7"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c.Close()

	c2, err := Open(path, time.Hour)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()

	var got meta
	ok, err := c2.Get(BucketRegistry, "click", &got)
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if got.Version != "8.1.7" {
		t.Errorf("Version = %q, want %q", got.Version, "8.1.7")
	}
}

func TestBoltCacheDelete(t *testing.T) {
	c := newTestCache(t)
	c.Set(BucketRegistry, "a", 1)
	if err := c.Delete(BucketRegistry, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var got int
	if ok, _ := c.Get(BucketRegistry, "a", &got); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory(time.Hour)
	if err := m.Set(BucketRegistry, "a", meta{Version: "1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got meta
	ok, err := m.Get(BucketRegistry, "a", &got)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Version != "1" {
		t.Errorf("Version = %q, want %q", got.Version, "1")
	}
	m.Delete(BucketRegistry, "a")
	if ok, _ := m.Get(BucketRegistry, "a", &got); ok {
		t.Error("expected miss after delete")
	}
}
