package advisor

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
)

// QueryCache caches answers per portfolio. Lookups try an exact hash
// match first, then fall back to keyword similarity so close rephrasings
// ("sector exposure breakdown" vs "breakdown of sector exposure") reuse
// the same answer.
type QueryCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	ttl        time.Duration
	threshold  float64
	maxEntries int
}

type cacheEntry struct {
	portfolioID string
	keywords    map[string]bool
	response    *Response
	createdAt   time.Time
	hits        int
}

// NewQueryCache creates a query cache
func NewQueryCache(ttl time.Duration, threshold float64) *QueryCache {
	if ttl == 0 {
		ttl = 1 * time.Hour
	}
	if threshold == 0 {
		threshold = 0.90
	}

	c := &QueryCache{
		entries:    make(map[string]*cacheEntry),
		ttl:        ttl,
		threshold:  threshold,
		maxEntries: 4096,
	}
	go c.cleanupLoop()
	return c
}

// Get returns a cached response, or nil on miss
func (c *QueryCache) Get(query, portfolioID string) *Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if entry, ok := c.entries[hashQuery(query, portfolioID)]; ok && now.Sub(entry.createdAt) < c.ttl {
		entry.hits++
		return cloneResponse(entry.response)
	}

	keywords := extractKeywords(query)
	for _, entry := range c.entries {
		if entry.portfolioID != portfolioID || now.Sub(entry.createdAt) >= c.ttl {
			continue
		}
		if jaccard(keywords, entry.keywords) >= c.threshold {
			entry.hits++
			return cloneResponse(entry.response)
		}
	}
	return nil
}

// Set stores a response
func (c *QueryCache) Set(query, portfolioID string, response *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[hashQuery(query, portfolioID)] = &cacheEntry{
		portfolioID: portfolioID,
		keywords:    extractKeywords(query),
		response:    response,
		createdAt:   time.Now(),
	}
}

// Invalidate removes all entries for a portfolio
func (c *QueryCache) Invalidate(portfolioID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for hash, entry := range c.entries {
		if entry.portfolioID == portfolioID {
			delete(c.entries, hash)
		}
	}
}

// Stats returns cache statistics
func (c *QueryCache) Stats() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalHits := 0
	for _, entry := range c.entries {
		totalHits += entry.hits
	}
	return map[string]any{
		"entries":    len(c.entries),
		"max_size":   c.maxEntries,
		"total_hits": totalHits,
		"ttl":        c.ttl.String(),
	}
}

// evictOldest drops the oldest tenth of entries. Caller holds the lock.
func (c *QueryCache) evictOldest() {
	type aged struct {
		hash string
		at   time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for hash, entry := range c.entries {
		all = append(all, aged{hash, entry.createdAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	n := len(all) / 10
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		delete(c.entries, all[i].hash)
	}
}

func (c *QueryCache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for hash, entry := range c.entries {
			if now.Sub(entry.createdAt) >= c.ttl {
				delete(c.entries, hash)
			}
		}
		c.mu.Unlock()
	}
}

func hashQuery(query, portfolioID string) string {
	sum := sha256.Sum256([]byte(normalizeQuery(query) + "|" + portfolioID))
	return hex.EncodeToString(sum[:])
}

func normalizeQuery(query string) string {
	query = strings.ToLower(query)
	var b strings.Builder
	for _, r := range query {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' || r == '%' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true,
	"my": true, "i": true, "me": true, "you": true, "it": true,
	"what": true, "which": true, "how": true, "why": true, "when": true,
	"do": true, "does": true, "can": true, "could": true, "should": true,
	"of": true, "in": true, "on": true, "to": true, "for": true,
	"and": true, "or": true, "this": true, "that": true,
	"tell": true, "show": true, "about": true,
}

func extractKeywords(query string) map[string]bool {
	keywords := make(map[string]bool)
	for _, word := range strings.Fields(normalizeQuery(query)) {
		if len(word) < 2 || stopWords[word] {
			continue
		}
		keywords[word] = true
	}
	return keywords
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for kw := range a {
		if b[kw] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func cloneResponse(r *Response) *Response {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Sources = append([]Source(nil), r.Sources...)
	clone.Disclaimers = append([]string(nil), r.Disclaimers...)
	return &clone
}
