package cache

import (
	"testing"
	"time"

	"skledger/internal/core"
	"skledger/internal/export"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should be cached")
	}
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }
	c.Set("k", "v")
	c.Set("k2", "v2")

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expired entry returned")
	}
	m := NewManager()
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("expected 1 expired entry cleaned, got %d", n)
	}
	if c.Size() != 0 {
		t.Fatalf("size %d", c.Size())
	}
}

func TestLRUPurgeAndDelete(t *testing.T) {
	c := NewLRUCache[int](5, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("deleted key returned")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("purge left %d entries", c.Size())
	}
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	c := NewSnapshotCache(4, time.Minute)
	key := core.PeriodKey{Year: 2025, Quarter: core.Q1}
	c.Set(key, 3, export.Snapshot{PeriodKey: key.String()})
	if s, ok := c.Get(key, 3); !ok || s.PeriodKey != "2025-Q1" {
		t.Fatalf("snapshot not cached")
	}
	if _, ok := c.Get(key, 4); ok {
		t.Fatalf("snapshot of another revision returned")
	}
	c.Invalidate(key)
	if _, ok := c.Get(key, 3); ok {
		t.Fatalf("invalidated snapshot returned")
	}
}

func TestManagerStartStop(t *testing.T) {
	m := NewManager()
	m.Register(NewSnapshotCache(1, time.Minute))
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}
