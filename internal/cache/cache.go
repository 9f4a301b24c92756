// Package cache maps query fingerprints to previously computed
// responses so repeated queries skip the external classifier.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"support-orchestrator/internal/common/metrics"
	"support-orchestrator/internal/models"
)

// Cache is the response cache capability. The cache is global, not
// session-scoped: identical normalized queries from different
// sessions share an entry.
type Cache interface {
	// Lookup returns the cached response for fp, or false on a miss.
	// Expired entries count as misses and are evicted.
	Lookup(ctx context.Context, fp string) (*models.Response, bool)

	// Store caches resp under fp for ttl. Error responses are
	// rejected; transient failures must not be memoized.
	Store(ctx context.Context, fp string, resp *models.Response, ttl time.Duration)
}

// Normalize lowercases, trims and collapses whitespace so case and
// incidental spacing never fragment the cache.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(text))), " ")
}

// Fingerprint derives the stable cache key from normalized query text
// and resolved intent. Entities participate when present so responses
// embedding per-customer data key on the identifiers too.
func Fingerprint(text string, intent models.Intent, entities map[string]string) string {
	var b strings.Builder
	b.WriteString(Normalize(text))
	b.WriteByte('|')
	b.WriteString(string(intent))

	if len(entities) > 0 {
		keys := make([]string, 0, len(entities))
		for k := range entities {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte('|')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strings.ToUpper(entities[k]))
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

type entry struct {
	resp      *models.Response
	createdAt time.Time
	expiresAt time.Time
}

// InMemoryCache implements Cache with a mutex-guarded map and a fixed
// entry cap, evicting the oldest entry on overflow.
type InMemoryCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	now        func() time.Time
}

func NewInMemoryCache(maxEntries int) *InMemoryCache {
	return &InMemoryCache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *InMemoryCache) Lookup(ctx context.Context, fp string) (*models.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fp]
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, fp)
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return e.resp, true
}

func (c *InMemoryCache) Store(ctx context.Context, fp string, resp *models.Response, ttl time.Duration) {
	if resp == nil || !resp.Cacheable() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[fp]; !exists {
			c.evictOldestLocked()
		}
	}

	c.entries[fp] = entry{
		resp:      resp,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

func (c *InMemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
