package loadorder

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/loadforge/sorter/internal/cache"
)

// sortCacheEntry is what SortCache stores per digest: the computed order
// plus the diagnostic messages Sort would have left on the snapshot, so a
// cache hit can repopulate both without re-running the sort.
type sortCacheEntry struct {
	Order    []string `json:"order"`
	Messages []string `json:"messages"`
}

// SortCache serves computed orders for a given SnapshotDigest, fronting
// the disk-backed cache.Cache with an in-process LRU so repeated requests
// for the same load order (the common case — a user re-checking their
// plugin list after a small change elsewhere) don't round-trip through
// SQLite. Entries written to the disk layer expire after ttl; the
// in-process LRU has no expiry and drops entries only when it is full, so
// an entry it still holds is served after ttl has passed.
type SortCache struct {
	hot   *lru.Cache[string, sortCacheEntry]
	cold  *cache.Cache
	ttl   time.Duration
	hotSz int
}

// NewSortCache builds a SortCache. cold may be nil, in which case only
// the in-process LRU is used and entries don't survive a restart.
func NewSortCache(cold *cache.Cache, ttl time.Duration, hotSize int) (*SortCache, error) {
	if hotSize <= 0 {
		hotSize = 128
	}
	hot, err := lru.New[string, sortCacheEntry](hotSize)
	if err != nil {
		return nil, err
	}
	return &SortCache{hot: hot, cold: cold, ttl: ttl, hotSz: hotSize}, nil
}

// Get returns a cached order and messages for digest, if present in
// either layer.
func (c *SortCache) Get(ctx context.Context, digest string) ([]string, []string, bool) {
	if entry, ok := c.hot.Get(digest); ok {
		return entry.Order, entry.Messages, true
	}
	if c.cold == nil {
		return nil, nil, false
	}
	var entry sortCacheEntry
	if err := c.cold.Get(ctx, coldKey(digest), &entry); err != nil {
		return nil, nil, false
	}
	c.hot.Add(digest, entry)
	return entry.Order, entry.Messages, true
}

// Put stores a computed order under digest in both layers.
func (c *SortCache) Put(ctx context.Context, digest string, order, messages []string) {
	entry := sortCacheEntry{Order: order, Messages: messages}
	c.hot.Add(digest, entry)
	if c.cold != nil {
		c.cold.SetWithTTL(ctx, coldKey(digest), entry, c.ttl)
	}
}

func coldKey(digest string) string {
	return "loadorder:sort:" + digest
}
