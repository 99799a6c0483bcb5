package cache

import (
	"time"

	"skledger/internal/core"
	"skledger/internal/export"
)

type revisioned struct {
	revision uint64
	snapshot export.Snapshot
}

// SnapshotCache memoizes export snapshots per period. Each entry remembers
// the ledger revision it was built from; a lookup with any other revision
// misses, so a snapshot can never outlive the state it renders.
type SnapshotCache struct {
	lru *LRUCache[revisioned]
}

var _ Cache[revisioned] = (*LRUCache[revisioned])(nil)

func NewSnapshotCache(maxSize int, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{lru: NewLRUCache[revisioned](maxSize, ttl)}
}

// Get returns the snapshot of key built at revision.
func (c *SnapshotCache) Get(key core.PeriodKey, revision uint64) (export.Snapshot, bool) {
	e, ok := c.lru.Get(key.String())
	if !ok || e.revision != revision {
		return export.Snapshot{}, false
	}
	return e.snapshot, true
}

// Set stores s as the snapshot of key at revision. Callers read the
// revision before building s.
func (c *SnapshotCache) Set(key core.PeriodKey, revision uint64, s export.Snapshot) {
	c.lru.Set(key.String(), revisioned{revision: revision, snapshot: s})
}

// Invalidate drops the cached snapshot of key. It has the signature of the
// ledger controller's change hook.
func (c *SnapshotCache) Invalidate(key core.PeriodKey) {
	c.lru.Delete(key.String())
}

func (c *SnapshotCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

func (c *SnapshotCache) Size() int {
	return c.lru.Size()
}
